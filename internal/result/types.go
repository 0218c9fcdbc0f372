package result

// Document is the persisted summary. Both maps are keyed
// env -> opponent slot -> opponent path.
type Document struct {
	Policies map[string]map[string]map[string]string  `json:"policies"`
	Winrates map[string]map[string]map[string]float64 `json:"winrates"`
}

// Row is one flattened leaf of a Document.
type Row struct {
	Env          string  `json:"env"`
	OpponentSlot string  `json:"opponent_slot"`
	Opponent     string  `json:"opponent"`
	Winrate      float64 `json:"winrate"`
	Policy       string  `json:"policy"`
}
