package models

// EntityType identifies which of the three entity collections a value
// belongs to.
type EntityType string

const (
	EntityGenre  EntityType = "genre"
	EntityArtist EntityType = "artist"
	EntityTrack  EntityType = "track"
)

// ParseEntityType validates a client-supplied type string.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case EntityGenre, EntityArtist, EntityTrack:
		return EntityType(s), nil
	}
	return "", ErrUnknownEntityType
}

// Entity is a genre, artist or track document. Entities are read-only at
// request time; the ETL rebuilds them wholesale.
type Entity struct {
	ID         string             `json:"id"`
	Type       EntityType         `json:"type"`
	Name       string             `json:"name"`
	Features   map[string]float64 `json:"features"`
	Popularity float64            `json:"popularity"`
	Labels     []string           `json:"labels,omitempty"`
	Genres     []string           `json:"genres,omitempty"`
	SuperGenre string             `json:"super_genre,omitempty"`
	Color      string             `json:"color,omitempty"`
}

// DimensionDescriptor is a named numeric feature with the global min/max
// observed across the track corpus. The min/max pair defines the domain
// for normalization.
type DimensionDescriptor struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// GraphNode is one rendered point of a graph view, positioned in
// normalized [0,1]² space.
type GraphNode struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	Size       float64    `json:"size"`
	Type       EntityType `json:"type"`
	Genres     []string   `json:"genre,omitempty"`
	SuperGenre string     `json:"super_genre,omitempty"`
	Color      string     `json:"color,omitempty"`
}

// GraphLink connects two surviving nodes that share a group label. Endpoint
// coordinates are stored denormalized so the frontend can render the link
// without a second lookup.
type GraphLink struct {
	Source string  `json:"src"`
	Dest   string  `json:"dest"`
	Label  string  `json:"name"`
	Color  string  `json:"color"`
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
}

// SnapshotKey identifies one precomputed node/link snapshot.
type SnapshotKey struct {
	DimX  string     `json:"dimx"`
	DimY  string     `json:"dimy"`
	Type  EntityType `json:"type"`
	Level int        `json:"level"`
}

// Snapshot is the persisted result of one precomputation run. It is
// replaced atomically and never partially updated.
type Snapshot struct {
	Key   SnapshotKey `json:"key"`
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// InterestPoint is one weighted point of a recommendation heat overlay.
type InterestPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Value float64 `json:"value"`
}

// RegionOfInterest is the bounding rectangle plus weighted point list
// describing where recommended nodes cluster.
type RegionOfInterest struct {
	MinX     float64         `json:"min_x"`
	MaxX     float64         `json:"max_x"`
	MinY     float64         `json:"min_y"`
	MaxY     float64         `json:"max_y"`
	Interest []InterestPoint `json:"interest"`
}

// LabelStat summarizes one record label for the label list view.
type LabelStat struct {
	Name       string `json:"name"`
	NumArtists int    `json:"num_artists"`
	TotalSongs int    `json:"total_songs"`
}

// GenreStat carries a genre and its popularity for the wordcloud.
type GenreStat struct {
	Name       string  `json:"name"`
	Popularity float64 `json:"popularity"`
}

// YearStat aggregates per-year feature averages for the streamgraph.
type YearStat struct {
	Year     int                `json:"year"`
	Features map[string]float64 `json:"features"`
}
