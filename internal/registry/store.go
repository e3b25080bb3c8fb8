package registry

// store.go — persistencia del archivo de mappings.
//
// El archivo es un array JSON de TokenMapping. Al cargar se descartan las
// entradas con schema_version distinto al actual; el resolver las vuelve a
// resolver como si no existieran. La escritura es atómica: temp file en el
// mismo directorio y rename, para que el monitor nunca lea un archivo a
// medio escribir.

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alejandrodnm/arbwatch/internal/domain"
)

// Store mantiene los mappings en memoria, indexados por fingerprint, y los
// persiste como array JSON. Es seguro para uso concurrente.
type Store struct {
	path string

	mu    sync.RWMutex
	byFP  map[string]domain.TokenMapping
	order []string
}

// Open carga el store desde path. Si el archivo no existe devuelve un store
// vacío; el registry lo crea en el primer Save.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		byFP: make(map[string]domain.TokenMapping),
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read mappings %s: %w", path, err)
	}
	if err := s.load(data); err != nil {
		return nil, err
	}
	return s, nil
}

// Load carga el store desde path y falla si el archivo no existe. Es el
// constructor del monitor: sin mappings no hay nada que monitorear.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read mappings %s (run the registry command first): %w", path, err)
	}
	s := &Store{
		path: path,
		byFP: make(map[string]domain.TokenMapping),
	}
	if err := s.load(data); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(data []byte) error {
	var entries []domain.TokenMapping
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("registry: parse mappings %s: %w", s.path, err)
	}
	dropped := 0
	for _, m := range entries {
		if m.SchemaVersion != domain.MappingSchemaVersion || m.Fingerprint == "" {
			dropped++
			continue
		}
		if _, dup := s.byFP[m.Fingerprint]; !dup {
			s.order = append(s.order, m.Fingerprint)
		}
		s.byFP[m.Fingerprint] = m
	}
	if dropped > 0 {
		slog.Warn("dropped mappings with outdated schema", "file", s.path, "dropped", dropped)
	}
	return nil
}

// Get devuelve el mapping cacheado para un fingerprint.
func (s *Store) Get(fingerprint string) (domain.TokenMapping, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byFP[fingerprint]
	return m, ok
}

// Put inserta o reemplaza un mapping, fijando el schema version actual.
func (s *Store) Put(m domain.TokenMapping) {
	m.SchemaVersion = domain.MappingSchemaVersion
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byFP[m.Fingerprint]; !dup {
		s.order = append(s.order, m.Fingerprint)
	}
	s.byFP[m.Fingerprint] = m
}

// All devuelve los mappings en orden de inserción.
func (s *Store) All() []domain.TokenMapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TokenMapping, 0, len(s.order))
	for _, fp := range s.order {
		out = append(out, s.byFP[fp])
	}
	return out
}

// Len devuelve cuántos mappings hay cargados.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byFP)
}

// Prune elimina los mappings cuyo mercado expiró hace más de grace.
// Devuelve los nombres eliminados. Mappings sin end date conocido se
// conservan siempre.
func (s *Store) Prune(now time.Time, grace time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	kept := s.order[:0]
	for _, fp := range s.order {
		m := s.byFP[fp]
		if !m.EndDate.IsZero() && now.After(m.EndDate.Add(grace)) {
			delete(s.byFP, fp)
			removed = append(removed, m.PairName)
			continue
		}
		kept = append(kept, fp)
	}
	s.order = kept
	return removed
}

// Save persiste los mappings de forma atómica: temp file en el mismo
// directorio y rename sobre el destino.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.All(), "", "  ")
	if err != nil {
		return fmt.Errorf("registry: encode mappings: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("registry: create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".mappings-*.json")
	if err != nil {
		return fmt.Errorf("registry: create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("registry: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("registry: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("registry: rename %s: %w", s.path, err)
	}
	return nil
}
