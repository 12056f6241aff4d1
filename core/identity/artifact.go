package identity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/tintaacademy/migrator/core"
)

// StudentMapFile is written by the students stage and read by the enrollment and order stages.
const StudentMapFile = "student-mapping.json"

var nowFunc = time.Now // mockable

type studentArtifact struct {
	GeneratedAt time.Time             `json:"generatedAt"`
	Entries     map[string]StudentRef `json:"entries"`
	Unmatched   []string              `json:"unmatched,omitempty"`
}

func StudentMapPath(dir string) string {
	return filepath.Join(dir, StudentMapFile)
}

// SaveStudentMap writes the map atomically (temp file + rename).
func SaveStudentMap(dir string, m *StudentMap) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating mapping dir %s", dir)
	}
	data, err := json.MarshalIndent(studentArtifact{GeneratedAt: nowFunc().UTC(), Entries: m.entries, Unmatched: m.unmatched}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding student mapping")
	}

	tmp, err := os.CreateTemp(dir, StudentMapFile+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating student mapping")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing student mapping")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "writing student mapping")
	}
	if err = os.Rename(tmp.Name(), StudentMapPath(dir)); err != nil {
		return errors.Wrap(err, "saving student mapping")
	}
	return nil
}

// StudentMapExists is checked by the CLI before any connection is opened.
func StudentMapExists(dir string) error {
	path := StudentMapPath(dir)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return core.NewConfigError("missing prerequisite artifact (run the students stage first)", path)
		}
		return errors.Wrapf(err, "checking %s", path)
	}
	return nil
}

// LoadStudentMap returns a *core.ConfigError when the artifact does not exist.
func LoadStudentMap(dir string) (*StudentMap, error) {
	if err := StudentMapExists(dir); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(StudentMapPath(dir))
	if err != nil {
		return nil, errors.Wrap(err, "reading student mapping")
	}
	var art studentArtifact
	if err = json.Unmarshal(data, &art); err != nil {
		return nil, errors.Wrap(err, "decoding student mapping")
	}

	m := NewStudentMap()
	for id, ref := range art.Entries {
		m.Set(id, ref)
	}
	m.unmatched = art.Unmatched
	return m, nil
}
