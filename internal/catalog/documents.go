package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Document types recognised in a document-store export.
const (
	docTypeComponent = "component"
	docTypeProduct   = "product"
)

// ErrInvalidDocument is returned when an export line is not valid JSON.
var ErrInvalidDocument = errors.New("invalid document")

// DecodeDocuments builds a Catalog from a document-store export: either a
// JSON array of documents or newline-delimited documents. Prices are decimal
// major units. Drafts (ids prefixed "drafts.") and unknown document types are
// skipped.
//
//	{"_id":"cpu-7800x3d","_type":"component","category":"cpu","title":"...","price":449,"stock":12,"specs":{"socket":"AM5"}}
//	{"_id":"paste","_type":"product","title":"...","price":9.99,"stock":40,"loyalty":{"pointsPerUnit":10,"expiresAt":"2025-12-31T00:00:00Z"}}
func DecodeDocuments(data []byte) (*Catalog, error) {
	var (
		components []Component
		products   []Product
		decodeErr  error
	)

	visit := func(doc gjson.Result) bool {
		if !doc.IsObject() {
			decodeErr = fmt.Errorf("%w: %s", ErrInvalidDocument, truncate(doc.Raw))
			return false
		}
		id := doc.Get("_id").String()
		if strings.HasPrefix(id, "drafts.") {
			return true
		}
		switch doc.Get("_type").String() {
		case docTypeComponent:
			comp, err := componentFromDocument(doc)
			if err != nil {
				decodeErr = err
				return false
			}
			components = append(components, comp)
		case docTypeProduct:
			products = append(products, productFromDocument(doc))
		}
		return true
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if !gjson.ValidBytes(trimmed) {
			return nil, fmt.Errorf("%w: malformed array", ErrInvalidDocument)
		}
		gjson.ParseBytes(trimmed).ForEach(func(_, doc gjson.Result) bool {
			return visit(doc)
		})
	} else {
		for n, line := range strings.Split(string(trimmed), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if !gjson.Valid(line) {
				return nil, fmt.Errorf("%w on line %d", ErrInvalidDocument, n+1)
			}
			if !visit(gjson.Parse(line)) {
				break
			}
		}
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return New(components, products)
}

func componentFromDocument(doc gjson.Result) (Component, error) {
	id := doc.Get("_id").String()
	cat, err := ParseCategory(categorySlug(doc.Get("category")))
	if err != nil {
		return Component{}, fmt.Errorf("document %s: %w", id, err)
	}
	specs := doc.Get("specs")
	return Component{
		ID:        id,
		Category:  cat,
		Title:     doc.Get("title").String(),
		UnitPrice: FromMajor(doc.Get("price").Float()),
		Stock:     int(doc.Get("stock").Int()),
		Spec:      specFromDocument(cat, specs),
	}, nil
}

// categorySlug accepts a plain string, a slug object, or a reference of the
// form {"_ref":"category-cpu"}.
func categorySlug(v gjson.Result) string {
	switch {
	case v.Type == gjson.String:
		return v.String()
	case v.Get("slug.current").Exists():
		return v.Get("slug.current").String()
	case v.Get("_ref").Exists():
		return strings.TrimPrefix(v.Get("_ref").String(), "category-")
	}
	return ""
}

func specFromDocument(cat Category, s gjson.Result) Spec {
	if !s.Exists() {
		return nil
	}
	switch cat {
	case CPU:
		return CPUSpec{
			Socket:   s.Get("socket").String(),
			Cores:    int(s.Get("cores").Int()),
			TDPWatts: int(s.Get("tdpWatts").Int()),
		}
	case Motherboard:
		return MotherboardSpec{
			Socket:      s.Get("socket").String(),
			MemoryType:  s.Get("memoryType").String(),
			FormFactor:  s.Get("formFactor").String(),
			MemorySlots: int(s.Get("memorySlots").Int()),
			MaxMemoryGB: int(s.Get("maxMemoryGB").Int()),
		}
	case Memory:
		return MemorySpec{
			MemoryType: s.Get("memoryType").String(),
			CapacityGB: int(s.Get("capacityGB").Int()),
		}
	case Storage:
		return StorageSpec{
			Interface:  s.Get("interface").String(),
			CapacityGB: int(s.Get("capacityGB").Int()),
		}
	case GPU:
		return GPUSpec{
			LengthMM: int(s.Get("lengthMM").Int()),
			TDPWatts: int(s.Get("tdpWatts").Int()),
		}
	case PSU:
		return PSUSpec{Wattage: int(s.Get("wattage").Int())}
	case Case:
		return CaseSpec{
			FormFactor:     s.Get("formFactor").String(),
			MaxGPULengthMM: int(s.Get("maxGpuLengthMM").Int()),
		}
	case Cooler:
		var sockets []string
		for _, v := range s.Get("sockets").Array() {
			sockets = append(sockets, v.String())
		}
		return CoolerSpec{Sockets: sockets}
	}
	return nil
}

func productFromDocument(doc gjson.Result) Product {
	p := Product{
		ID:        doc.Get("_id").String(),
		Title:     doc.Get("title").String(),
		UnitPrice: FromMajor(doc.Get("price").Float()),
		Stock:     int(doc.Get("stock").Int()),
	}
	if pts := doc.Get("loyalty.pointsPerUnit"); pts.Exists() && pts.Type == gjson.Number {
		v := pts.Int()
		p.PointsPerUnit = &v
	}
	if exp := doc.Get("loyalty.expiresAt"); exp.Exists() && exp.Type == gjson.String {
		if t, err := time.Parse(time.RFC3339, exp.String()); err == nil {
			p.PointsExpireAt = &t
		}
	}
	return p
}

func truncate(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
