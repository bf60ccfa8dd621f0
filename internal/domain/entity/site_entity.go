package entity

// Site is a deployment the service answers for; notification links are
// built from its domain.
type Site struct {
	ID     int    `json:"id"`
	Domain string `json:"domain"`
	Name   string `json:"name"`
}
