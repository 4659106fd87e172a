package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in tests and local dry runs.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	docs   map[int64]*Document
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 10000001, docs: make(map[int64]*Document)}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateDocument(_ context.Context, doc *Document) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.docs {
		if existing.DocHash == doc.DocHash {
			return 0, fmt.Errorf("store: duplicate doc_hash %s", doc.DocHash)
		}
	}

	clone := *doc
	clone.ID = s.nextID
	clone.CreatedAt = time.Now()
	s.docs[clone.ID] = &clone
	s.nextID++

	return clone.ID, nil
}

func (s *MemoryStore) GetDocument(_ context.Context, id int64) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrRecordNotFound, id)
	}
	clone := *doc
	return &clone, nil
}

func (s *MemoryStore) GetDocumentsBy(_ context.Context, column string, values ...any) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	match := func(doc *Document, v any) bool {
		switch column {
		case "id":
			return fmt.Sprint(doc.ID) == fmt.Sprint(v)
		case "doc_hash":
			return doc.DocHash == fmt.Sprint(v)
		case "doc_status":
			return string(doc.Status) == fmt.Sprint(v)
		case "subfolder":
			return doc.Subfolder == fmt.Sprint(v)
		case "message_id":
			return doc.MessageID == fmt.Sprint(v)
		default:
			return false
		}
	}

	var docs []*Document
	for _, doc := range s.docs {
		for _, v := range values {
			if match(doc, v) {
				clone := *doc
				docs = append(docs, &clone)
				break
			}
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	return docs, nil
}

func (s *MemoryStore) UpdateDocument(_ context.Context, id int64, fields Fields) error {
	if err := validateFields(fields); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrRecordNotFound, id)
	}
	applyFields(doc, fields)

	return nil
}

func (s *MemoryStore) UpdateDocuments(ctx context.Context, rows []BulkRow) (int64, error) {
	var updated int64
	for _, row := range rows {
		if err := s.UpdateDocument(ctx, row.ID, row.Fields); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

func (s *MemoryStore) DeleteByHash(_ context.Context, hash string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for id, doc := range s.docs {
		if doc.DocHash == hash {
			ids = append(ids, id)
			delete(s.docs, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

func applyFields(doc *Document, fields Fields) {
	for col, v := range fields {
		switch col {
		case "subfolder":
			doc.Subfolder = fmt.Sprint(v)
		case "message_id":
			doc.MessageID = fmt.Sprint(v)
		case "message_category":
			doc.MessageCategory = toNullString(v)
		case "control_category":
			doc.ControlCategory = toNullString(v)
		case "doc_status":
			doc.Status = Status(fmt.Sprint(v))
		case "link":
			doc.Link = toNullString(v)
		case "extracted_text":
			doc.ExtractedText = toNullString(v)
		case "output_file":
			if b, ok := v.([]byte); ok {
				doc.OutputData = b
			} else if v != nil {
				doc.OutputData = []byte(fmt.Sprint(v))
			}
		case "log_file":
			doc.LogText = toNullString(v)
		case "case_id":
			doc.CaseID = toNullInt64(v)
		}
	}
	doc.LastUpdate = sql.NullTime{Time: time.Now(), Valid: true}
}

func toNullString(v any) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	if s, ok := v.(sql.NullString); ok {
		return s
	}
	return sql.NullString{String: fmt.Sprint(v), Valid: true}
}

func toNullInt64(v any) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	switch n := v.(type) {
	case sql.NullInt64:
		return n
	case int64:
		return sql.NullInt64{Int64: n, Valid: true}
	case int:
		return sql.NullInt64{Int64: int64(n), Valid: true}
	}
	return sql.NullInt64{}
}
