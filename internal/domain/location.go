package domain

// Province is a top-level catalog entry. It has no parent.
type Province struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// District belongs to the province referenced by ParentID.
type District struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

// Ward belongs to the district referenced by ParentID.
type Ward struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
	Level    string `json:"level,omitempty"`
}
