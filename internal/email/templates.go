// Package email renders campaign HTML and drives sending through the
// cloud mirror's script endpoint, which owns delivery and the daily quota.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/afflab/affiliatehub/backend/internal/catalog"
)

// TemplateName selects one of the campaign layouts.
type TemplateName string

const (
	TemplateMinimal  TemplateName = "minimal"
	TemplateMagazine TemplateName = "magazine"
	TemplateGrid     TemplateName = "grid"
)

const defaultBrandName = "Weekly Picks"

// TemplateData is everything a campaign layout needs.
type TemplateData struct {
	Products  []catalog.Product
	Subject   string
	Intro     string
	BrandName string
	Settings  catalog.Settings
}

// Featured returns the lead product for the magazine layout.
func (d TemplateData) Featured() catalog.Product {
	if len(d.Products) == 0 {
		return catalog.Product{}
	}
	return d.Products[0]
}

// Others returns everything after the featured product.
func (d TemplateData) Others() []catalog.Product {
	if len(d.Products) <= 1 {
		return nil
	}
	return d.Products[1:]
}

// Rows pairs products two per row for the grid layout.
func (d TemplateData) Rows() [][]catalog.Product {
	var rows [][]catalog.Product
	for i := 0; i < len(d.Products); i += 2 {
		end := i + 2
		if end > len(d.Products) {
			end = len(d.Products)
		}
		rows = append(rows, d.Products[i:end])
	}
	return rows
}

// Unsubscribe falls back to a dead anchor when no link is configured.
func (d TemplateData) Unsubscribe() string {
	if d.Settings.UnsubscribeLink == "" {
		return "#"
	}
	return d.Settings.UnsubscribeLink
}

var templateFuncs = template.FuncMap{
	"truncate": func(text string, max int) string {
		runes := []rune(text)
		if len(runes) <= max {
			return text
		}
		return string(runes[:max]) + "..."
	},
}

var minimalTemplate = template.Must(template.New("minimal").Funcs(templateFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Subject}}</title>
</head>
<body style="margin:0; padding:0; background:#ffffff; font-family:-apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" style="background:#ffffff;">
    <tr><td align="center" style="padding:40px 20px;">
      <table width="600" cellpadding="0" cellspacing="0" style="max-width:600px;">
        <tr><td style="padding:0 0 40px; text-align:center; border-bottom:1px solid #f0f0f0;">
          <h1 style="margin:0; font-size:28px; font-weight:600; color:#1d1d1f;">{{.BrandName}}</h1>
        </td></tr>
        <tr><td style="padding:40px 0 30px;">
          <p style="margin:0; font-size:17px; color:#1d1d1f; line-height:1.6;">{{.Intro}}</p>
        </td></tr>
{{range .Products}}        <tr><td style="padding:30px 0; border-bottom:1px solid #f0f0f0;">
          <table width="100%" cellpadding="0" cellspacing="0"><tr>
            <td width="120" style="vertical-align:top;">
              <img src="{{if .Image}}{{.Image}}{{else}}https://via.placeholder.com/120x120/f8f8f8/ccc?text=+{{end}}" width="120" height="120" style="display:block; border-radius:8px;" alt="">
            </td>
            <td style="padding-left:25px; vertical-align:top;">
              <h3 style="margin:0 0 8px; font-size:17px; font-weight:600; color:#1d1d1f;">{{truncate .Title 65}}</h3>
              <p style="margin:0 0 12px; font-size:14px; color:#86868b;">Rating: {{.Rating}} out of 5</p>
              <span style="font-size:22px; font-weight:600; color:#1d1d1f;">${{.Price}}</span>
              <a href="{{.AffiliateLink}}" style="display:inline-block; margin-left:20px; padding:10px 22px; background:#0071e3; color:#fff; text-decoration:none; border-radius:20px; font-size:14px;">View Item</a>
            </td>
          </tr></table>
        </td></tr>
{{end}}        <tr><td style="padding:40px 0; text-align:center;">
          <p style="margin:0 0 10px; font-size:12px; color:#86868b;">You're receiving this because you subscribed to {{.BrandName}}.</p>
{{if .Settings.AffiliateDisclosure}}          <p style="margin:0 0 10px; font-size:12px; color:#86868b;">{{.Settings.AffiliateDisclosure}}</p>
{{end}}          <p style="margin:0; font-size:12px;"><a href="{{.Unsubscribe}}" style="color:#86868b;">Unsubscribe</a></p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`))

var magazineTemplate = template.Must(template.New("magazine").Funcs(templateFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Subject}}</title>
</head>
<body style="margin:0; padding:0; background:#f8f8f8; font-family:Georgia, 'Times New Roman', serif;">
  <table width="100%" cellpadding="0" cellspacing="0" style="background:#f8f8f8;">
    <tr><td align="center" style="padding:30px 20px;">
      <table width="600" cellpadding="0" cellspacing="0" style="max-width:600px; background:#ffffff;">
        <tr><td style="padding:30px 40px; border-bottom:3px solid #222;">
          <h1 style="margin:0; font-size:32px; font-weight:400; color:#222; font-style:italic;">{{.BrandName}}</h1>
        </td></tr>
        <tr><td style="padding:30px 40px 20px;">
          <p style="margin:0; font-size:16px; color:#444; line-height:1.7; font-style:italic;">{{.Intro}}</p>
        </td></tr>
{{with .Featured}}        <tr><td style="padding:20px 40px;">
          <table width="100%" cellpadding="0" cellspacing="0" style="background:#fafafa; border-radius:12px;">
            <tr><td><img src="{{if .Image}}{{.Image}}{{else}}https://via.placeholder.com/520x300/eee/999?text=Featured{{end}}" width="100%" style="display:block;" alt=""></td></tr>
            <tr><td style="padding:25px;">
              <p style="margin:0 0 8px; font-size:11px; color:#e63946; text-transform:uppercase; letter-spacing:1.5px;">Editor's Pick</p>
              <h2 style="margin:0 0 12px; font-size:22px; font-weight:400; color:#222;">{{.Title}}</h2>
              <p style="margin:0 0 15px; font-size:14px; color:#666;">Rated {{.Rating}}/5 stars</p>
              <span style="font-size:28px; font-weight:700; color:#222;">${{.Price}}</span>
              <a href="{{.AffiliateLink}}" style="display:inline-block; margin-left:20px; padding:12px 28px; background:#222; color:#fff; text-decoration:none; font-size:13px; text-transform:uppercase;">View Details</a>
            </td></tr>
          </table>
        </td></tr>
{{end}}{{if .Others}}        <tr><td style="padding:30px 30px 20px;">
          <h3 style="margin:0 0 20px; font-size:14px; color:#222; text-transform:uppercase; letter-spacing:2px; text-align:center;">More Finds</h3>
          <table width="100%" cellpadding="0" cellspacing="0"><tr>
{{range .Others}}            <td width="33%" style="padding:10px; vertical-align:top;">
              <img src="{{if .Image}}{{.Image}}{{else}}https://via.placeholder.com/150x150/f5f5f5/999?text=+{{end}}" width="100%" style="display:block; border-radius:8px;" alt="">
              <h4 style="margin:12px 0 6px; font-size:13px; font-weight:600; color:#222;">{{truncate .Title 40}}</h4>
              <p style="margin:0 0 8px; font-size:18px; font-weight:700; color:#e63946;">${{.Price}}</p>
              <a href="{{.AffiliateLink}}" style="font-size:12px; color:#222; text-decoration:underline;">Shop Now</a>
            </td>
{{end}}          </tr></table>
        </td></tr>
{{end}}        <tr><td style="padding:30px 40px; border-top:1px solid #eee; text-align:center;">
          <p style="margin:0 0 10px; font-size:12px; color:#999;">You received this from {{.BrandName}}</p>
          <a href="{{.Unsubscribe}}" style="font-size:12px; color:#999;">Unsubscribe</a>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`))

var gridTemplate = template.Must(template.New("grid").Funcs(templateFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Subject}}</title>
</head>
<body style="margin:0; padding:0; background:#f3f4f6; font-family:-apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" style="background:#f3f4f6;">
    <tr><td align="center" style="padding:40px 15px;">
      <table width="620" cellpadding="0" cellspacing="0" style="max-width:620px;">
        <tr><td style="padding:40px 30px; text-align:center; background:#10b981; border-radius:20px;">
          <h1 style="margin:0 0 10px; font-size:28px; font-weight:700; color:#ffffff;">{{.BrandName}}</h1>
          <p style="margin:0; font-size:15px; color:rgba(255,255,255,0.9);">{{.Intro}}</p>
        </td></tr>
{{range .Rows}}        <tr>
{{range .}}          <td width="50%" style="padding:10px; vertical-align:top;">
            <table width="100%" cellpadding="0" cellspacing="0" style="background:#ffffff; border-radius:16px;">
              <tr><td><img src="{{if .Image}}{{.Image}}{{else}}https://via.placeholder.com/260x180/f0f0f0/aaa?text=Product{{end}}" width="100%" height="160" style="display:block;" alt=""></td></tr>
              <tr><td style="padding:20px;">
                <p style="margin:0 0 6px; font-size:10px; color:#10b981; font-weight:700; text-transform:uppercase;">{{if .Platform}}{{.Platform}}{{else}}Featured{{end}}</p>
                <h3 style="margin:0 0 10px; font-size:14px; font-weight:600; color:#111;">{{truncate .Title 50}}</h3>
                <p style="margin:0 0 15px; font-size:13px; color:#6b7280;">&#9733; {{.Rating}}</p>
                <span style="font-size:22px; font-weight:700; color:#111;">${{.Price}}</span>
                <a href="{{.AffiliateLink}}" style="display:inline-block; margin-left:10px; padding:10px 16px; background:#10b981; color:#fff; text-decoration:none; border-radius:8px; font-size:12px; font-weight:600;">Get It</a>
              </td></tr>
            </table>
          </td>
{{end}}        </tr>
{{end}}        <tr><td style="padding:35px 20px; text-align:center;">
          <p style="margin:0 0 8px; font-size:13px; color:#6b7280;">Curated by {{.BrandName}}</p>
          <p style="margin:0; font-size:13px;"><a href="{{.Unsubscribe}}" style="color:#6b7280; text-decoration:underline;">Unsubscribe</a></p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`))

var templates = map[TemplateName]*template.Template{
	TemplateMinimal:  minimalTemplate,
	TemplateMagazine: magazineTemplate,
	TemplateGrid:     gridTemplate,
}

// Render produces campaign HTML for the named layout. Unknown names fall
// back to minimal and a missing brand name gets the default.
func Render(name TemplateName, data TemplateData) (string, error) {
	if strings.TrimSpace(data.BrandName) == "" {
		data.BrandName = defaultBrandName
	}
	tmpl, ok := templates[name]
	if !ok {
		tmpl = minimalTemplate
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("email: render %s: %w", name, err)
	}
	return buf.String(), nil
}
