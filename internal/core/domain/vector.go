package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FragmentType identifies which part of a document a vector was built from
type FragmentType string

const (
	FragmentTypeMetadata FragmentType = "metadata" // title + description + labels
	FragmentTypePage     FragmentType = "page"     // one page of extracted text
)

// keySeparator joins the parts of a vector ID
const keySeparator = "_"

// Fragment is one embeddable unit of a document.
// PageIndex is 0-based and only meaningful for page fragments.
type Fragment struct {
	Type      FragmentType `json:"type"`
	PageIndex int          `json:"page"`
	Text      string       `json:"-"`
	Embedding []float32    `json:"-"`
}

// NewMetadataFragment creates the metadata fragment of a document
func NewMetadataFragment(text string, embedding []float32) *Fragment {
	return &Fragment{Type: FragmentTypeMetadata, PageIndex: -1, Text: text, Embedding: embedding}
}

// NewPageFragment creates the fragment for the page at index
func NewPageFragment(index int, text string, embedding []float32) *Fragment {
	return &Fragment{Type: FragmentTypePage, PageIndex: index, Text: text, Embedding: embedding}
}

// VectorRecord is a fragment embedding addressed by its deterministic key
type VectorRecord struct {
	ID           string       `json:"id"`
	Embedding    []float32    `json:"values"`
	CourseID     string       `json:"courseId"`
	DocumentID   string       `json:"documentId"`
	FragmentType FragmentType `json:"type"`
	PageIndex    int          `json:"page"`
}

// NewVectorRecord maps a fragment of documentID to its record in courseID
func NewVectorRecord(documentID, courseID string, f *Fragment) *VectorRecord {
	page := f.PageIndex
	if f.Type == FragmentTypeMetadata {
		page = -1
	}
	return &VectorRecord{
		ID:           VectorID(documentID, courseID, f.Type, page),
		Embedding:    f.Embedding,
		CourseID:     courseID,
		DocumentID:   documentID,
		FragmentType: f.Type,
		PageIndex:    page,
	}
}

// VectorID builds {documentId}_{courseId}_{type}[_{page}].
// Re-indexing a document overwrites the same keys.
func VectorID(documentID, courseID string, fragmentType FragmentType, pageIndex int) string {
	id := documentID + keySeparator + courseID + keySeparator + string(fragmentType)
	if fragmentType == FragmentTypePage {
		id += keySeparator + strconv.Itoa(pageIndex)
	}
	return id
}

// DocumentPrefix returns the key prefix shared by every vector of a document in a course.
// The trailing separator keeps course "1" from matching course "10".
func DocumentPrefix(documentID, courseID string) string {
	return documentID + keySeparator + courseID + keySeparator
}

// VectorKey is the decoded form of a vector ID
type VectorKey struct {
	DocumentID   string
	CourseID     string
	FragmentType FragmentType
	PageIndex    int
}

// ParseVectorID decodes id, requiring it to belong to courseID.
// Document and course IDs may themselves contain the separator, so the
// fragment suffix is stripped from the right and the course is matched
// as a known suffix of what remains.
func ParseVectorID(id, courseID string) (VectorKey, error) {
	key := VectorKey{CourseID: courseID, PageIndex: -1}

	rest := id
	metaSuffix := keySeparator + string(FragmentTypeMetadata)
	if strings.HasSuffix(rest, metaSuffix) {
		key.FragmentType = FragmentTypeMetadata
		rest = strings.TrimSuffix(rest, metaSuffix)
	} else {
		cut := strings.LastIndex(rest, keySeparator)
		if cut < 0 {
			return VectorKey{}, fmt.Errorf("%w: malformed vector id %q", ErrInvalidInput, id)
		}
		page, err := strconv.Atoi(rest[cut+1:])
		if err != nil || page < 0 {
			return VectorKey{}, fmt.Errorf("%w: malformed page in vector id %q", ErrInvalidInput, id)
		}
		rest = rest[:cut]
		pageSuffix := keySeparator + string(FragmentTypePage)
		if !strings.HasSuffix(rest, pageSuffix) {
			return VectorKey{}, fmt.Errorf("%w: unknown fragment type in vector id %q", ErrInvalidInput, id)
		}
		key.FragmentType = FragmentTypePage
		key.PageIndex = page
		rest = strings.TrimSuffix(rest, pageSuffix)
	}

	courseSuffix := keySeparator + courseID
	if courseID == "" || !strings.HasSuffix(rest, courseSuffix) {
		return VectorKey{}, fmt.Errorf("%w: vector id %q is not in course %q", ErrInvalidInput, id, courseID)
	}
	key.DocumentID = strings.TrimSuffix(rest, courseSuffix)
	if key.DocumentID == "" {
		return VectorKey{}, fmt.Errorf("%w: vector id %q has no document", ErrInvalidInput, id)
	}
	return key, nil
}

// BelongsToCourse reports whether id encodes courseID
func BelongsToCourse(id, courseID string) bool {
	_, err := ParseVectorID(id, courseID)
	return err == nil
}
