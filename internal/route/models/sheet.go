package models

import (
	"sort"
	"strings"
	"time"

	"encantar/pkg/dateutil"
)

// NoServiceDate is shown on sheets for routes without a date.
const NoServiceDate = "Not scheduled"

// Sheet is the printable view of a route. Field names double as the
// Handlebars variables available to document templates.
type Sheet struct {
	RouteName          string             `json:"route_name" handlebars:"route_name"`
	Description        string             `json:"description" handlebars:"description"`
	ServiceDate        string             `json:"service_date" handlebars:"service_date"`
	CreatedAt          string             `json:"created_at" handlebars:"created_at"`
	GeneratedAt        string             `json:"generated_at" handlebars:"generated_at"`
	TotalBeneficiaries int                `json:"total_beneficiaries" handlebars:"total_beneficiaries"`
	TotalItems         int                `json:"total_items" handlebars:"total_items"`
	Beneficiaries      []SheetBeneficiary `json:"beneficiaries" handlebars:"beneficiaries"`
	ItemSummary        []SheetItem        `json:"item_summary" handlebars:"item_summary"`
}

type SheetBeneficiary struct {
	Order      int         `json:"order" handlebars:"order"`
	Name       string      `json:"name" handlebars:"name"`
	Address    string      `json:"address" handlebars:"address"`
	Phone      string      `json:"phone" handlebars:"phone"`
	Notes      string      `json:"notes" handlebars:"notes"`
	Status     string      `json:"status" handlebars:"status"`
	Items      []SheetItem `json:"items" handlebars:"items"`
	TotalItems int         `json:"total_items" handlebars:"total_items"`
}

type SheetItem struct {
	Name     string `json:"name" handlebars:"name"`
	Quantity int    `json:"quantity" handlebars:"quantity"`
	Unit     string `json:"unit" handlebars:"unit"`
}

// BuildSheet flattens a route detail into sheet data. Stops keep the order of
// d.Deliveries and are numbered from 1.
func BuildSheet(d *Detail, now time.Time) *Sheet {
	sh := &Sheet{
		RouteName:          d.Name,
		Description:        deref(d.Description),
		ServiceDate:        NoServiceDate,
		CreatedAt:          dateutil.FormatDateTime(d.CreatedAt),
		GeneratedAt:        dateutil.FormatDateTime(now),
		TotalBeneficiaries: len(d.Deliveries),
		Beneficiaries:      make([]SheetBeneficiary, 0, len(d.Deliveries)),
	}
	if d.ServiceDate != nil {
		sh.ServiceDate = dateutil.FormatDate(d.ServiceDate.Time)
	}

	summary := map[string]*SheetItem{}
	for i, del := range d.Deliveries {
		b := SheetBeneficiary{
			Order:   i + 1,
			Name:    del.Beneficiary.Name,
			Address: del.Beneficiary.Address,
			Phone:   deref(del.Beneficiary.Phone),
			Notes:   deref(del.Notes),
			Status:  string(del.Status),
			Items:   make([]SheetItem, 0, len(del.Items)),
		}
		for _, l := range del.Items {
			b.Items = append(b.Items, SheetItem{Name: l.Name, Quantity: l.Quantity, Unit: string(l.Unit)})
			b.TotalItems += l.Quantity
			if s, ok := summary[l.Name]; ok {
				s.Quantity += l.Quantity
			} else {
				summary[l.Name] = &SheetItem{Name: l.Name, Quantity: l.Quantity, Unit: string(l.Unit)}
			}
		}
		sh.TotalItems += b.TotalItems
		sh.Beneficiaries = append(sh.Beneficiaries, b)
	}

	sh.ItemSummary = make([]SheetItem, 0, len(summary))
	for _, s := range summary {
		sh.ItemSummary = append(sh.ItemSummary, *s)
	}
	sort.Slice(sh.ItemSummary, func(i, j int) bool {
		return strings.ToLower(sh.ItemSummary[i].Name) < strings.ToLower(sh.ItemSummary[j].Name)
	})
	return sh
}

// FileName is the download name of a rendered sheet.
func FileName(routeName string) string {
	var b strings.Builder
	for _, r := range routeName {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return "route-" + b.String() + ".html"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
