package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// KindInfo carries the per-kind tokens used to build and parse catalog URLs.
type KindInfo struct {
	Kind       ItemKind
	Category   string // catalog category name, e.g. "Parts"
	QueryKey   string // inventory query key, e.g. "P"
	ImageToken string // image path token, e.g. "PN"
	Heading    string // inventory page heading, e.g. "Parts:"
}

var kindTable = []KindInfo{
	{Kind: KindSet, Category: "Sets", QueryKey: "S", ImageToken: "SN", Heading: "Sets:"},
	{Kind: KindPart, Category: "Parts", QueryKey: "P", ImageToken: "PN", Heading: "Parts:"},
	{Kind: KindMinifig, Category: "Minifigures", QueryKey: "M", ImageToken: "MN", Heading: "Minifigures:"},
	{Kind: KindBook, Category: "Books", QueryKey: "B", ImageToken: "BN", Heading: "Books:"},
	{Kind: KindGear, Category: "Gear", QueryKey: "G", ImageToken: "GN", Heading: "Gear:"},
}

var inventoryHeadings = func() map[string]ItemKind {
	out := make(map[string]ItemKind, len(kindTable))
	for _, info := range kindTable {
		out[strings.ToLower(info.Heading)] = info.Kind
		out[strings.ToLower(strings.TrimSuffix(info.Heading, ":"))] = info.Kind
	}
	return out
}()

// sourceKeyOrder is the precedence used when a source URL carries several kind keys.
var sourceKeyOrder = []string{"P", "S", "M", "G", "B"}

const (
	// DefaultCatalogBase is the BrickLink inventory page.
	DefaultCatalogBase = "https://www.bricklink.com/catalogItemInv.asp"
	// DefaultImageBase is the BrickLink item image root.
	DefaultImageBase = "https://img.bricklink.com/ItemImage"
	// DefaultInventoryQuery selects the printable, id-annotated inventory view.
	DefaultInventoryQuery = "viewType=P&viewChk=Y&bt=0&sortBy=0&sortAsc=A&viewID=Y"
	// DefaultCategoryLeaf is the leaf category assigned to items without one.
	DefaultCategoryLeaf = "User Added Item"
	// CatalogRoot heads every category path.
	CatalogRoot = "Catalog"
)

// URLScheme resolves identities to catalog and image URLs. A scheme is
// immutable after construction and safe to share.
type URLScheme struct {
	catalogBase    string
	imageBase      string
	inventoryQuery string
	byKind         map[ItemKind]KindInfo
	byQueryKey     map[string]KindInfo
}

// URLSchemeConfig enumerates the URLScheme fields. Empty fields take the
// BrickLink defaults.
type URLSchemeConfig struct {
	CatalogBase    string // default DefaultCatalogBase
	ImageBase      string // default DefaultImageBase
	InventoryQuery string // default DefaultInventoryQuery
}

// NewURLScheme builds a scheme over the standard kind table.
func NewURLScheme(cfg URLSchemeConfig) (*URLScheme, error) {
	if cfg.CatalogBase == "" {
		cfg.CatalogBase = DefaultCatalogBase
	}
	if cfg.ImageBase == "" {
		cfg.ImageBase = DefaultImageBase
	}
	if cfg.InventoryQuery == "" {
		cfg.InventoryQuery = DefaultInventoryQuery
	}
	for _, base := range []string{cfg.CatalogBase, cfg.ImageBase} {
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid base url %q", base)
		}
	}
	s := &URLScheme{
		catalogBase:    cfg.CatalogBase,
		imageBase:      strings.TrimSuffix(cfg.ImageBase, "/"),
		inventoryQuery: strings.TrimPrefix(cfg.InventoryQuery, "&"),
		byKind:         make(map[ItemKind]KindInfo, len(kindTable)),
		byQueryKey:     make(map[string]KindInfo, len(kindTable)),
	}
	for _, info := range kindTable {
		s.byKind[info.Kind] = info
		s.byQueryKey[info.QueryKey] = info
	}
	return s, nil
}

var brickLink = func() *URLScheme {
	s, err := NewURLScheme(URLSchemeConfig{})
	if err != nil {
		panic(err)
	}
	return s
}()

// BrickLink returns the shared scheme with the default BrickLink endpoints.
func BrickLink() *URLScheme { return brickLink }

// Info returns the table entry for kind.
func (s *URLScheme) Info(kind ItemKind) (KindInfo, bool) {
	info, ok := s.byKind[kind]
	return info, ok
}

// CategoryName returns the catalog category of kind ("Parts"), or the kind
// itself for kinds without a category.
func (s *URLScheme) CategoryName(kind ItemKind) string {
	if info, ok := s.byKind[kind]; ok {
		return info.Category
	}
	return string(kind)
}

// CatalogURL returns the inventory page URL of id.
func (s *URLScheme) CatalogURL(id Identity) (string, error) {
	info, ok := s.byKind[id.Kind]
	if !ok {
		return "", &ItemError{Op: "catalog url", ID: id.IDString(), Err: ErrUnsupportedItemKind}
	}
	if strings.TrimSpace(id.Num) == "" {
		return "", &ItemError{Op: "catalog url", Err: ErrInvalidItem}
	}
	return fmt.Sprintf("%s?%s=%s&%s", s.catalogBase, info.QueryKey, url.QueryEscape(id.Num), s.inventoryQuery), nil
}

// ImageURL returns the catalog image URL of id.
func (s *URLScheme) ImageURL(id Identity) (string, error) {
	info, ok := s.byKind[id.Kind]
	if !ok {
		return "", &ItemError{Op: "image url", ID: id.IDString(), Err: ErrUnsupportedItemKind}
	}
	if strings.TrimSpace(id.Num) == "" {
		return "", &ItemError{Op: "image url", Err: ErrInvalidItem}
	}
	return fmt.Sprintf("%s/%s/%d/%s.png", s.imageBase, info.ImageToken, id.Variant, url.PathEscape(id.Num)), nil
}

// ParseSourceURL extracts an identity from an inventory URL such as
//
//	https://www.bricklink.com/catalogItemInv.asp?S=2161-1&viewType=P
//	https://www.bricklink.com/catalogItemInv.asp?P=2599sprue&idColor=5
//
// Exactly one value is allowed per recognized key; the first kind key found
// in P, S, M, G, B order decides the kind.
func (s *URLScheme) ParseSourceURL(raw string) (Identity, error) {
	fail := func(reason string) (Identity, error) {
		return Identity{}, fmt.Errorf("%w: %s: %q", ErrMalformedSourceReference, reason, raw)
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fail("unparseable url")
	}
	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return fail("unparseable query")
	}

	id := Identity{Kind: KindUnknown}
	if colors, ok := query["idColor"]; ok {
		if len(colors) != 1 {
			return fail("repeated idColor")
		}
		variant, err := strconv.Atoi(strings.TrimSpace(colors[0]))
		if err != nil || variant < 0 {
			return fail("idColor is not a color number")
		}
		id.Variant = variant
	}

	for _, key := range sourceKeyOrder {
		values, ok := query[key]
		if !ok {
			continue
		}
		if len(values) != 1 {
			return fail("repeated " + key)
		}
		num := strings.TrimSpace(values[0])
		if num == "" {
			return fail("empty " + key)
		}
		id.Kind = s.byQueryKey[key].Kind
		id.Num = num
		return id, nil
	}
	return fail("no item key")
}

// ParseSourceURL resolves raw against the BrickLink scheme.
func ParseSourceURL(raw string) (Identity, error) {
	return brickLink.ParseSourceURL(raw)
}
