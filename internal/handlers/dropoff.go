package handlers

import (
	"github.com/labstack/echo/v4"
)

// DropoffPoint is a staffed site accepting drop-off deposits
type DropoffPoint struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Hours      string   `json:"hours"`
	Categories []string `json:"categories"`
}

// dropoffPoints is the static site catalogue. Sites change rarely enough
// that a table is not worth it yet.
// TODO: move to the database once sites get per-site capacity limits.
var dropoffPoints = []DropoffPoint{
	{
		ID:         1,
		Name:       "Recyclerie Centre",
		Address:    "12 rue de la République, 69002 Lyon",
		Hours:      "Mon-Sat 9:00-18:00",
		Categories: []string{"computer", "smartphone", "screen", "components"},
	},
	{
		ID:         2,
		Name:       "Déchetterie Nord",
		Address:    "45 avenue des Frères Lumière, 69008 Lyon",
		Hours:      "Mon-Sun 8:00-19:00",
		Categories: []string{"computer", "smartphone", "appliance", "screen", "components", "other"},
	},
	{
		ID:         3,
		Name:       "Point Relais Ouest",
		Address:    "3 place Valmy, 69009 Lyon",
		Hours:      "Tue-Sat 10:00-17:00",
		Categories: []string{"smartphone", "components"},
	},
}

// DropoffHandler serves the drop-off point catalogue
type DropoffHandler struct{}

// NewDropoffHandler creates a new drop-off handler
func NewDropoffHandler() *DropoffHandler {
	return &DropoffHandler{}
}

// Register registers drop-off point routes
func (h *DropoffHandler) Register(g *echo.Group) {
	g.GET("", h.List)
}

// List returns all drop-off points
func (h *DropoffHandler) List(c echo.Context) error {
	return SuccessResponse(c, dropoffPoints)
}
