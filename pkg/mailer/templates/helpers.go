package templates

import (
	"github.com/oksasatya/go-ddd-private-messages/config"
)

// NewBaseEmailData fills the company fields from config.
func NewBaseEmailData(cfg *config.Config, siteURL string) EmailData {
	d := EmailData{SiteURL: siteURL}
	if cfg == nil {
		return d
	}
	d.CompanyName = cfg.CompanyName
	d.CompanyAddress = cfg.CompanyAddress
	d.AppName = cfg.AppName
	d.LogoURL = cfg.LogoURL
	d.SupportURL = cfg.SupportURL
	d.PrivacyURL = cfg.PrivacyURL
	d.UnsubscribeURL = cfg.UnsubscribeURL
	return d
}

// NewMessageData is the template data of the new message notification.
func NewMessageData(cfg *config.Config, siteURL string, m MessageView) EmailData {
	d := NewBaseEmailData(cfg, siteURL)
	d.Message = m
	return d
}
