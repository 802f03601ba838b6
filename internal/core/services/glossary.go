package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driving"
	"github.com/custodia-labs/corpus-rag/internal/logger"
)

// Ensure GlossaryStore implements the interface.
var _ driving.GlossaryService = (*GlossaryStore)(nil)

// GlossaryStore holds expert terms and synonym groups loaded from a directory.
// Readers see an immutable snapshot; Upload, Delete and Load build a new
// snapshot under a write lock and swap it in.
type GlossaryStore struct {
	dir     string
	writeMu sync.Mutex
	current atomic.Pointer[glossarySnapshot]
}

// NewGlossaryStore creates a store over dir. Call Load to read existing files.
func NewGlossaryStore(dir string) *GlossaryStore {
	g := &GlossaryStore{dir: dir}
	g.current.Store(buildSnapshot(nil))
	return g
}

// Dir returns the glossary directory.
func (g *GlossaryStore) Dir() string {
	return g.dir
}

// Load reads every supported file in the directory. Malformed files are
// logged and skipped. A missing directory yields an empty glossary.
func (g *GlossaryStore) Load(ctx context.Context) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	entries, err := os.ReadDir(g.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			g.current.Store(buildSnapshot(nil))
			return nil
		}
		return fmt.Errorf("failed to read glossary directory: %w", err)
	}

	files := make(map[string]*domain.GlossaryFile)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, ok := domain.GlossaryFormatFromName(e.Name()); !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(g.dir, e.Name()))
		if err != nil {
			logger.Warn("glossary: cannot read %s: %v", e.Name(), err)
			continue
		}
		file, err := ParseGlossary(e.Name(), data)
		if err != nil {
			logger.Warn("glossary: skipping %v", err)
			continue
		}
		files[e.Name()] = file
	}

	snap := buildSnapshot(files)
	g.current.Store(snap)
	logger.Info("glossary: loaded %d files, %d definitions, %d canonical terms",
		len(files), len(snap.entries), len(snap.canonicals))
	return nil
}

// Upload validates data and stores it as filename, replacing any file with
// that name. Nothing is written when the file does not parse.
func (g *GlossaryStore) Upload(_ context.Context, filename string, data []byte) (*domain.GlossaryDelta, error) {
	if err := validateGlossaryName(filename); err != nil {
		return nil, err
	}
	file, err := ParseGlossary(filename, data)
	if err != nil {
		return nil, err
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	if err := writeFileAtomic(g.dir, filename, data); err != nil {
		return nil, fmt.Errorf("failed to store glossary file: %w", err)
	}

	prev := g.current.Load()
	files := prev.cloneFiles()
	_, replaced := files[filename]
	files[filename] = file

	snap := buildSnapshot(files)
	g.current.Store(snap)
	logger.Info("glossary: stored %s (%d terms, %d synonym groups)", filename, len(file.Entries), len(file.Synonyms))

	return &domain.GlossaryDelta{
		Filename:           filename,
		Replaced:           replaced,
		TermsAdded:         len(file.Entries),
		SynonymGroupsAdded: len(file.Synonyms),
		TotalTerms:         len(snap.canonicals),
	}, nil
}

// Delete removes filename from disk and from the live glossary.
func (g *GlossaryStore) Delete(_ context.Context, filename string) error {
	if err := validateGlossaryName(filename); err != nil {
		return err
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	err := os.Remove(filepath.Join(g.dir, filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("glossary file %s: %w", filename, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to delete glossary file: %w", err)
	}

	files := g.current.Load().cloneFiles()
	delete(files, filename)
	g.current.Store(buildSnapshot(files))
	logger.Info("glossary: deleted %s", filename)
	return nil
}

// List describes the loaded files, ordered by name.
func (g *GlossaryStore) List() []domain.GlossaryFileInfo {
	snap := g.current.Load()
	out := make([]domain.GlossaryFileInfo, 0, len(snap.files))
	for _, name := range snap.names {
		f := snap.files[name]
		out = append(out, domain.GlossaryFileInfo{
			Name:          f.Name,
			Format:        f.Format,
			TermCount:     len(f.Entries),
			SynonymGroups: len(f.Synonyms),
		})
	}
	return out
}

// Entries returns every term definition, sorted by term.
func (g *GlossaryStore) Entries() []domain.GlossaryEntry {
	snap := g.current.Load()
	out := make([]domain.GlossaryEntry, len(snap.entries))
	copy(out, snap.entries)
	return out
}

// MatchTerms returns the canonical forms of the known terms found in text.
func (g *GlossaryStore) MatchTerms(text string) map[string]struct{} {
	return g.current.Load().match(text)
}

// ExpandSynonyms returns term together with its canonical form and variants.
func (g *GlossaryStore) ExpandSynonyms(term string) map[string]struct{} {
	return g.current.Load().expand(term)
}

// glossarySnapshot is one immutable view of the glossary.
type glossarySnapshot struct {
	files   map[string]*domain.GlossaryFile
	names   []string
	entries []domain.GlossaryEntry

	// forms maps every lower-cased surface form to its canonical term.
	forms map[string]string
	// formOrder lists forms longest first.
	formOrder []string
	// groups maps a canonical term to all of its forms.
	groups     map[string][]string
	canonicals map[string]struct{}
}

func buildSnapshot(files map[string]*domain.GlossaryFile) *glossarySnapshot {
	s := &glossarySnapshot{
		files:      files,
		forms:      make(map[string]string),
		groups:     make(map[string][]string),
		canonicals: make(map[string]struct{}),
	}
	if s.files == nil {
		s.files = make(map[string]*domain.GlossaryFile)
	}
	for name := range s.files {
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)

	// Later files override earlier definitions of the same term.
	byTerm := make(map[string]domain.GlossaryEntry)
	for _, name := range s.names {
		for _, e := range s.files[name].Entries {
			key := strings.ToLower(e.Term)
			byTerm[key] = e
			if _, ok := s.forms[key]; !ok {
				s.forms[key] = e.Term
			}
		}
	}
	for _, e := range byTerm {
		s.entries = append(s.entries, e)
	}
	sort.Slice(s.entries, func(i, j int) bool {
		return strings.ToLower(s.entries[i].Term) < strings.ToLower(s.entries[j].Term)
	})

	// Synonym relations win over bare terms.
	canonicalOf := make(map[string]string)
	for _, name := range s.names {
		for _, grp := range s.files[name].Synonyms {
			key := strings.ToLower(grp.Canonical)
			canonical, ok := canonicalOf[key]
			if !ok {
				canonical = grp.Canonical
				canonicalOf[key] = canonical
			}
			s.forms[key] = canonical
			for _, v := range grp.Variants {
				s.forms[strings.ToLower(v)] = canonical
			}
		}
	}

	for form, canonical := range s.forms {
		s.canonicals[canonical] = struct{}{}
		s.groups[canonical] = append(s.groups[canonical], form)
		s.formOrder = append(s.formOrder, form)
	}
	for canonical := range s.groups {
		sort.Strings(s.groups[canonical])
	}
	sort.Slice(s.formOrder, func(i, j int) bool {
		a, b := s.formOrder[i], s.formOrder[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return s
}

func (s *glossarySnapshot) cloneFiles() map[string]*domain.GlossaryFile {
	out := make(map[string]*domain.GlossaryFile, len(s.files)+1)
	for k, v := range s.files {
		out[k] = v
	}
	return out
}

func (s *glossarySnapshot) match(text string) map[string]struct{} {
	found := make(map[string]struct{})
	if text == "" || len(s.forms) == 0 {
		return found
	}
	lower := strings.ToLower(text)
	for _, form := range s.formOrder {
		canonical := s.forms[form]
		if _, ok := found[canonical]; ok {
			continue
		}
		if containsTerm(lower, form) {
			found[canonical] = struct{}{}
		}
	}
	return found
}

func (s *glossarySnapshot) expand(term string) map[string]struct{} {
	out := map[string]struct{}{}
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return out
	}
	out[trimmed] = struct{}{}
	canonical, ok := s.forms[strings.ToLower(trimmed)]
	if !ok {
		return out
	}
	out[canonical] = struct{}{}
	for _, form := range s.groups[canonical] {
		if strings.EqualFold(form, canonical) || strings.EqualFold(form, trimmed) {
			continue
		}
		out[form] = struct{}{}
	}
	return out
}

// containsTerm reports whether form occurs in text without being glued to
// surrounding ASCII letters or digits. Both arguments are lower-cased.
func containsTerm(text, form string) bool {
	if form == "" {
		return false
	}
	for start := 0; start <= len(text)-len(form); {
		i := strings.Index(text[start:], form)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(form)
		if boundaryBefore(text, i, form) && boundaryAfter(text, end, form) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		start = i + size
	}
	return false
}

func boundaryBefore(text string, i int, form string) bool {
	first, _ := utf8.DecodeRuneInString(form)
	if !isASCIIWord(first) || i == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isASCIIWord(prev)
}

func boundaryAfter(text string, end int, form string) bool {
	last, _ := utf8.DecodeLastRuneInString(form)
	if !isASCIIWord(last) || end >= len(text) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(text[end:])
	return !isASCIIWord(next)
}

func isASCIIWord(r rune) bool {
	return r < utf8.RuneSelf && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
}

func validateGlossaryName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) ||
		strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: invalid glossary file name %q", domain.ErrInvalidInput, name)
	}
	if _, ok := domain.GlossaryFormatFromName(name); !ok {
		return &domain.GlossaryFormatError{Filename: name, Reason: "only .json, .csv, .yaml and .yml files are supported"}
	}
	return nil
}

// glossaryDocument is the JSON and YAML shape of a glossary file.
type glossaryDocument struct {
	Terms    []domain.GlossaryEntry `json:"terms" yaml:"terms"`
	Synonyms map[string][]string    `json:"synonyms" yaml:"synonyms"`
}

// ParseGlossary decodes one glossary file. Any problem rejects the whole
// file with a *domain.GlossaryFormatError.
func ParseGlossary(name string, data []byte) (*domain.GlossaryFile, error) {
	format, ok := domain.GlossaryFormatFromName(name)
	if !ok {
		return nil, &domain.GlossaryFormatError{Filename: name, Reason: "unsupported file extension"}
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	file := &domain.GlossaryFile{Name: name, Format: format}
	var err error
	switch format {
	case domain.GlossaryFormatCSV:
		err = parseGlossaryCSV(file, data)
	case domain.GlossaryFormatYAML:
		var doc glossaryDocument
		if yerr := yaml.Unmarshal(data, &doc); yerr != nil {
			return nil, &domain.GlossaryFormatError{Filename: name, Reason: "invalid YAML: " + yerr.Error()}
		}
		err = fillGlossary(file, doc)
	default:
		var doc glossaryDocument
		if jerr := json.Unmarshal(data, &doc); jerr != nil {
			return nil, &domain.GlossaryFormatError{Filename: name, Reason: "invalid JSON: " + jerr.Error()}
		}
		err = fillGlossary(file, doc)
	}
	if err != nil {
		return nil, err
	}
	if len(file.Entries) == 0 && len(file.Synonyms) == 0 {
		return nil, &domain.GlossaryFormatError{Filename: name, Reason: "no terms or synonyms"}
	}
	return file, nil
}

func fillGlossary(file *domain.GlossaryFile, doc glossaryDocument) error {
	for i, e := range doc.Terms {
		term := strings.TrimSpace(e.Term)
		if term == "" {
			return &domain.GlossaryFormatError{Filename: file.Name, Reason: fmt.Sprintf("terms[%d]: empty term", i)}
		}
		file.Entries = append(file.Entries, domain.GlossaryEntry{Term: term, Definition: strings.TrimSpace(e.Definition)})
	}

	canonicals := make([]string, 0, len(doc.Synonyms))
	for c := range doc.Synonyms {
		canonicals = append(canonicals, c)
	}
	sort.Strings(canonicals)
	for _, c := range canonicals {
		canonical := strings.TrimSpace(c)
		if canonical == "" {
			return &domain.GlossaryFormatError{Filename: file.Name, Reason: "synonyms: empty canonical term"}
		}
		grp := domain.SynonymGroup{Canonical: canonical}
		for _, v := range doc.Synonyms[c] {
			if v = strings.TrimSpace(v); v != "" {
				grp.Variants = append(grp.Variants, v)
			}
		}
		if len(grp.Variants) == 0 {
			return &domain.GlossaryFormatError{Filename: file.Name, Reason: fmt.Sprintf("synonyms: %q has no variants", canonical)}
		}
		file.Synonyms = append(file.Synonyms, grp)
	}
	return nil
}

// parseGlossaryCSV accepts a "term,definition" or a "canonical,alias" header.
func parseGlossaryCSV(file *domain.GlossaryFile, data []byte) error {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &domain.GlossaryFormatError{Filename: file.Name, Reason: "empty file"}
		}
		return csvFormatError(file.Name, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	termCol, isTerms := cols["term"]
	canonCol, isSynonyms := cols["canonical"]
	aliasCol, hasAlias := cols["alias"]
	defCol, hasDef := cols["definition"]
	switch {
	case isTerms:
	case isSynonyms && hasAlias:
	default:
		return &domain.GlossaryFormatError{Filename: file.Name, Line: 1,
			Reason: `header must contain "term,definition" or "canonical,alias"`}
	}

	groups := make(map[string]*domain.SynonymGroup)
	var order []string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return csvFormatError(file.Name, err)
		}
		line, _ := r.FieldPos(0)

		if isTerms {
			term := strings.TrimSpace(rec[termCol])
			if term == "" {
				return &domain.GlossaryFormatError{Filename: file.Name, Line: line, Reason: "empty term"}
			}
			entry := domain.GlossaryEntry{Term: term}
			if hasDef {
				entry.Definition = strings.TrimSpace(rec[defCol])
			}
			file.Entries = append(file.Entries, entry)
			continue
		}

		canonical, alias := strings.TrimSpace(rec[canonCol]), strings.TrimSpace(rec[aliasCol])
		if canonical == "" || alias == "" {
			return &domain.GlossaryFormatError{Filename: file.Name, Line: line, Reason: "canonical and alias are required"}
		}
		grp, ok := groups[canonical]
		if !ok {
			grp = &domain.SynonymGroup{Canonical: canonical}
			groups[canonical] = grp
			order = append(order, canonical)
		}
		grp.Variants = append(grp.Variants, alias)
	}

	for _, c := range order {
		file.Synonyms = append(file.Synonyms, *groups[c])
	}
	return nil
}

func csvFormatError(name string, err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return &domain.GlossaryFormatError{Filename: name, Line: perr.Line, Reason: perr.Err.Error()}
	}
	return &domain.GlossaryFormatError{Filename: name, Reason: err.Error()}
}

// writeFileAtomic writes data to dir/name through a hidden temp file and rename.
func writeFileAtomic(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // removed on success by rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, name))
}
