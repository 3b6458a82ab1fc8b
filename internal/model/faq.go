package model

// FAQMatch is one semantic-search hit from the FAQ index.
// Similarity is cosine similarity in [0,1], higher means more relevant.
type FAQMatch struct {
	Similarity float64 `json:"similarity"`
	Bank       string  `json:"bank,omitempty"`
	Category   string  `json:"category,omitempty"`
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
}
