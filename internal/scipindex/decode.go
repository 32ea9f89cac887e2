package scipindex

import "fmt"

const (
	fieldIndexDocument       = 3
	fieldIndexExternalSymbol = 4

	fieldDocRelativePath = 1
	fieldDocLanguage     = 4
	fieldDocOccurrence   = 5
	fieldDocSymbolInfo   = 6

	fieldOccSymbol    = 1
	fieldOccRange     = 3
	fieldOccRoleFlags = 4

	fieldSymSymbol        = 1
	fieldSymDocumentation = 3
	fieldSymDisplayName   = 7
)

// Range is a decoded [startLine, startChar, endLine, endChar] occurrence span.
type Range struct {
	StartLine int
	StartChar int
	EndLine   int
	EndChar   int
}

// Occurrence is a decoded Occurrence message.
type Occurrence struct {
	Symbol    string
	Range     Range
	RoleFlags int
}

// SymbolInfo is a decoded SymbolInfo message, whether top-level
// (ExternalSymbol) or inline within a Document.
type SymbolInfo struct {
	Symbol        string
	Documentation string
	DisplayName   string
}

// Document is a decoded Document message: one source file plus its
// occurrences and any inline symbol metadata.
type Document struct {
	RelativePath string
	Language     string
	Occurrences  []Occurrence
	Symbols      []SymbolInfo
}

// RawIndex is a shallow parse of the top-level Index message: document
// bodies are kept undecoded so a later decode failure isolates to one
// document, while external symbols (rare, small) are decoded eagerly.
type RawIndex struct {
	DocumentBodies  [][]byte
	ExternalSymbols []SymbolInfo
}

// ParseIndex shallow-parses the top-level Index message.
func ParseIndex(data []byte) (*RawIndex, error) {
	fields, err := parseFields(data)
	if err != nil {
		return nil, fmt.Errorf("scipindex: parse index: %w", err)
	}

	idx := &RawIndex{}
	for _, f := range fields {
		switch f.num {
		case fieldIndexDocument:
			if f.wireType != wireBytes {
				continue
			}
			idx.DocumentBodies = append(idx.DocumentBodies, f.raw)
		case fieldIndexExternalSymbol:
			if f.wireType != wireBytes {
				continue
			}
			sym, err := decodeSymbolInfo(f.raw)
			if err != nil {
				continue // unknown/malformed external symbol: skip, not fatal to the index
			}
			idx.ExternalSymbols = append(idx.ExternalSymbols, sym)
		}
	}
	return idx, nil
}

// DecodeDocument fully decodes one Document message body. Errors here are
// isolated to this document by the caller.
func DecodeDocument(body []byte) (*Document, error) {
	fields, err := parseFields(body)
	if err != nil {
		return nil, fmt.Errorf("scipindex: parse document: %w", err)
	}

	doc := &Document{
		RelativePath: firstString(fields, fieldDocRelativePath),
		Language:     firstString(fields, fieldDocLanguage),
	}

	for _, raw := range allBytes(fields, fieldDocOccurrence) {
		occ, err := decodeOccurrence(raw)
		if err != nil {
			continue // malformed occurrence: skip it, keep the rest of the document
		}
		if occ == nil {
			continue // range had fewer than 4 integers: dropped per spec
		}
		doc.Occurrences = append(doc.Occurrences, *occ)
	}

	for _, raw := range allBytes(fields, fieldDocSymbolInfo) {
		sym, err := decodeSymbolInfo(raw)
		if err != nil {
			continue
		}
		doc.Symbols = append(doc.Symbols, sym)
	}

	return doc, nil
}

func decodeOccurrence(body []byte) (*Occurrence, error) {
	fields, err := parseFields(body)
	if err != nil {
		return nil, err
	}

	occ := &Occurrence{
		Symbol:    firstString(fields, fieldOccSymbol),
		RoleFlags: int(firstVarint(fields, fieldOccRoleFlags)),
	}

	var rangeInts []int
	for _, f := range fields {
		if f.num == fieldOccRange && f.wireType == wireBytes {
			ints, err := packedVarints(f.raw)
			if err != nil {
				return nil, err
			}
			rangeInts = ints
			break
		}
	}
	if len(rangeInts) < 4 {
		return nil, nil
	}
	occ.Range = Range{
		StartLine: rangeInts[0],
		StartChar: rangeInts[1],
		EndLine:   rangeInts[2],
		EndChar:   rangeInts[3],
	}
	return occ, nil
}

func decodeSymbolInfo(body []byte) (SymbolInfo, error) {
	fields, err := parseFields(body)
	if err != nil {
		return SymbolInfo{}, err
	}

	sym := SymbolInfo{
		Symbol:      firstString(fields, fieldSymSymbol),
		DisplayName: firstString(fields, fieldSymDisplayName),
	}

	var docs []string
	for _, raw := range allBytes(fields, fieldSymDocumentation) {
		docs = append(docs, string(raw))
	}
	sym.Documentation = joinDocumentation(docs)
	return sym, nil
}

func joinDocumentation(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n\n"
		}
		out += p
	}
	return out
}
