// Package scrape holds the HTML heuristics used against the legacy tracking
// portal: login form fields, navigation links and the device listing table.
package scrape

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"tracker-sync/internal/model"
)

const (
	minListingLength = 200
)

var listingKeywords = []string{
	"plate", "tracker", "device", "imei",
	"لوحة", "اللوحة", "جهاز", "أجهزة", "الأجهزة",
}

var linkKeywords = []string{
	"device", "vehicle", "unit", "tracker", "fleet", "cars", "imei",
	"جهاز", "أجهزة", "الأجهزة", "مركب", "سيار", "أسطول",
}

var linkExcludes = []string{
	"logout", "logoff", "signout", "خروج",
}

// HTMLParser is stateless and safe for concurrent use.
type HTMLParser struct{}

func NewHTMLParser() *HTMLParser {
	return &HTMLParser{}
}

func parse(html string) (*goquery.Document, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false
	}
	return doc, true
}

// HiddenFields returns every named hidden input, in document order, so the
// login post can echo the server's view state untouched.
func (p *HTMLParser) HiddenFields(html string) url.Values {
	values := url.Values{}
	doc, ok := parse(html)
	if !ok {
		return values
	}
	doc.Find("input").Each(func(_ int, input *goquery.Selection) {
		typ, _ := input.Attr("type")
		if !strings.EqualFold(strings.TrimSpace(typ), "hidden") {
			return
		}
		name, ok := input.Attr("name")
		if !ok || name == "" {
			return
		}
		value, _ := input.Attr("value")
		values.Add(name, value)
	})
	return values
}

// FieldNames collects the names of all form controls on the page.
func (p *HTMLParser) FieldNames(html string) map[string]bool {
	names := map[string]bool{}
	doc, ok := parse(html)
	if !ok {
		return names
	}
	doc.Find("input, select, textarea, button").Each(func(_ int, field *goquery.Selection) {
		if name, ok := field.Attr("name"); ok && name != "" {
			names[name] = true
		}
	})
	return names
}

// DeviceLinks mines anchors and frames for targets that look like a device or
// fleet listing. Order follows the document; duplicates are dropped.
func (p *HTMLParser) DeviceLinks(html string) []string {
	doc, ok := parse(html)
	if !ok {
		return nil
	}

	seen := map[string]bool{}
	var links []string
	consider := func(target, label string) {
		target = strings.TrimSpace(target)
		lower := strings.ToLower(target)
		if target == "" || strings.HasPrefix(target, "#") ||
			strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
			return
		}
		haystack := lower + " " + strings.ToLower(label)
		if containsAny(haystack, linkExcludes) || !containsAny(haystack, linkKeywords) {
			return
		}
		if seen[target] {
			return
		}
		seen[target] = true
		links = append(links, target)
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		title, _ := a.Attr("title")
		consider(href, a.Text()+" "+title)
	})
	doc.Find("frame[src], iframe[src]").Each(func(_ int, f *goquery.Selection) {
		src, _ := f.Attr("src")
		name, _ := f.Attr("name")
		consider(src, name)
	})
	return links
}

// LooksLikeDeviceListing is the acceptance test for a discovered page.
func (p *HTMLParser) LooksLikeDeviceListing(html string) bool {
	if utf8.RuneCountInString(html) <= minListingLength {
		return false
	}
	return containsAny(strings.ToLower(html), listingKeywords)
}

// ParseDevices extracts tracker rows from the listing page. Unknown markup
// yields an empty slice, never an error.
func (p *HTMLParser) ParseDevices(html string) []model.DeviceInput {
	devices := []model.DeviceInput{}
	doc, ok := parse(html)
	if !ok {
		return devices
	}

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		devices = append(devices, parseTable(table)...)
	})
	if len(devices) > 0 {
		return devices
	}

	doc.Find("[data-imei], [data-tracker]").Each(func(_ int, el *goquery.Selection) {
		if d, ok := parseDataAttributes(el); ok {
			devices = append(devices, d)
		}
	})
	return devices
}

// ownRows returns the rows of table itself, leaving out rows of nested tables.
func ownRows(table *goquery.Selection) *goquery.Selection {
	return table.ChildrenFiltered("tr").
		AddSelection(table.ChildrenFiltered("thead, tbody, tfoot").ChildrenFiltered("tr"))
}

// rowCells returns the text of the row's own cells. A cell wrapping another
// table is layout, not data, and reads as empty.
func rowCells(row *goquery.Selection) []string {
	var cells []string
	row.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
		if cell.Find("table").Length() > 0 {
			cells = append(cells, "")
			return
		}
		cells = append(cells, cleanText(cell.Text()))
	})
	return cells
}

func parseTable(table *goquery.Selection) []model.DeviceInput {
	rows := ownRows(table)
	if rows.Length() < 2 {
		return nil
	}

	headerAt := 0
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		if row.ChildrenFiltered("th").Length() > 0 {
			headerAt = i
			return false
		}
		return true
	})

	cols := mapColumns(rowCells(rows.Eq(headerAt)))
	if cols.plate < 0 || cols.tracker < 0 {
		return nil
	}

	var devices []model.DeviceInput
	rows.Slice(headerAt+1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
		cells := rowCells(row)

		plate := cellAt(cells, cols.plate)
		tracker := cellAt(cells, cols.tracker)
		if plate == "" || tracker == "" {
			return
		}

		d := model.DeviceInput{Plate: plate, TrackerID: tracker}
		d.Latitude = parseCoordinate(cellAt(cells, cols.lat), 90)
		d.Longitude = parseCoordinate(cellAt(cells, cols.lon), 180)
		if addr := cellAt(cells, cols.address); addr != "" {
			d.Address = &addr
		}
		devices = append(devices, d)
	})
	return devices
}

func parseDataAttributes(el *goquery.Selection) (model.DeviceInput, bool) {
	plate := strings.TrimSpace(el.AttrOr("data-plate", ""))
	tracker := strings.TrimSpace(el.AttrOr("data-imei", ""))
	if tracker == "" {
		tracker = strings.TrimSpace(el.AttrOr("data-tracker", ""))
	}
	if plate == "" || tracker == "" {
		return model.DeviceInput{}, false
	}

	d := model.DeviceInput{Plate: plate, TrackerID: tracker}
	d.Latitude = parseCoordinate(el.AttrOr("data-lat", ""), 90)
	d.Longitude = parseCoordinate(el.AttrOr("data-lng", el.AttrOr("data-lon", "")), 180)
	if addr := strings.TrimSpace(el.AttrOr("data-address", "")); addr != "" {
		d.Address = &addr
	}
	return d, true
}

type columns struct {
	plate, tracker, lat, lon, address int
}

func mapColumns(headers []string) columns {
	cols := columns{plate: -1, tracker: -1, lat: -1, lon: -1, address: -1}
	trackerRank := 0

	for i, h := range headers {
		lower := strings.ToLower(h)
		switch {
		case containsAny(lower, []string{"plate", "لوحة"}):
			if cols.plate < 0 {
				cols.plate = i
			}
		case trackerPriority(lower) > 0:
			if rank := trackerPriority(lower); rank > trackerRank {
				trackerRank = rank
				cols.tracker = i
			}
		case lower == "lat" || containsAny(lower, []string{"latitude", "خط العرض"}):
			if cols.lat < 0 {
				cols.lat = i
			}
		case lower == "lng" || lower == "lon" || lower == "long" || containsAny(lower, []string{"longitude", "خط الطول"}):
			if cols.lon < 0 {
				cols.lon = i
			}
		case containsAny(lower, []string{"address", "location", "العنوان", "الموقع"}):
			if cols.address < 0 {
				cols.address = i
			}
		}
	}

	// Some portals only label the plate column as the vehicle.
	if cols.plate < 0 {
		for i, h := range headers {
			if i != cols.tracker && containsAny(strings.ToLower(h), []string{"vehicle", "مركبة", "المركبة", "سيارة", "السيارة"}) {
				cols.plate = i
				break
			}
		}
	}
	return cols
}

func trackerPriority(header string) int {
	switch {
	case strings.Contains(header, "imei"):
		return 3
	case containsAny(header, []string{"tracker", "تتبع"}):
		return 2
	case containsAny(header, []string{"device", "serial", "unit id", "جهاز"}):
		return 1
	}
	return 0
}

func parseCoordinate(raw string, limit float64) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	raw = strings.Map(func(r rune) rune {
		switch {
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r == '٫':
			return '.'
		}
		return r
	}, raw)

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < -limit || v > limit {
		return nil
	}
	return &v
}

func cellAt(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
