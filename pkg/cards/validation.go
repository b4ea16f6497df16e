package cards

import (
	"strings"

	"github.com/tendant/simple-cards/pkg/auth"
	"github.com/tendant/simple-cards/pkg/domain"
)

// Validate checks the editable content of a card and normalizes it in place.
// Field paths in the returned error use dotted notation, e.g. "address.city".
func Validate(c *domain.Card) error {
	verr := &domain.ValidationError{}

	c.Title = auth.SanitizeName(c.Title)
	c.Subtitle = auth.SanitizeName(c.Subtitle)
	c.Description = auth.SanitizeText(c.Description)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = auth.NormalizeEmail(c.Email)
	c.Web = strings.TrimSpace(c.Web)

	lengths := []struct {
		field    string
		value    string
		min, max int
	}{
		{"title", c.Title, 2, 256},
		{"subtitle", c.Subtitle, 2, 256},
		{"description", c.Description, 2, 1024},
		{"address.country", c.Address.Country, 2, 256},
		{"address.city", c.Address.City, 2, 256},
		{"address.street", c.Address.Street, 2, 256},
	}
	for _, l := range lengths {
		if strings.TrimSpace(l.value) == "" {
			verr.Add(l.field, l.field+" is required")
			continue
		}
		if err := auth.ValidateStringLength(l.field, l.value, l.min, l.max); err != nil {
			verr.Add(l.field, err.Error())
		}
	}

	if c.Phone == "" {
		verr.Add("phone", "phone is required")
	} else if err := auth.ValidatePhone(c.Phone); err != nil {
		verr.Add("phone", err.Error())
	}
	if c.Email == "" {
		verr.Add("email", "email is required")
	} else if err := auth.ValidateEmail(c.Email, true, false); err != nil {
		verr.Add("email", "email must be a valid email")
	}
	if c.Web != "" && auth.ValidateURL(c.Web) != nil {
		verr.Add("web", "web must be a valid url")
	}

	if strings.TrimSpace(c.Image.URL) == "" {
		c.Image.URL = domain.DefaultImageURL
	} else if auth.ValidateURL(c.Image.URL) != nil {
		verr.Add("image.url", "image.url must be a valid url")
	}
	if c.Image.Alt == "" {
		c.Image.Alt = "Default image"
	} else if err := auth.ValidateStringLength("image.alt", c.Image.Alt, 2, 256); err != nil {
		verr.Add("image.alt", err.Error())
	}

	if c.Address.HouseNumber <= 0 {
		verr.Add("address.houseNumber", "address.houseNumber is required")
	}
	if c.Address.Zip < 0 {
		verr.Add("address.zip", "address.zip must be a positive number")
	}

	return verr.OrNil()
}

// ValidBizNumber reports whether n has exactly seven digits.
func ValidBizNumber(n int) bool {
	return n >= domain.MinBizNumber && n <= domain.MaxBizNumber
}
