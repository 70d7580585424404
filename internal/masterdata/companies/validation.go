package companies

import (
	"strings"

	"github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

func (s *Service) validateRequest(req *CompanyRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = shared.OptionalString(req.Category)
	req.Notes = shared.OptionalString(req.Notes)
	return s.validate.Struct(req)
}

func applyRequest(c *Company, req CompanyRequest) {
	c.Name = req.Name
	c.Category = req.Category
	c.Notes = req.Notes
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
}
