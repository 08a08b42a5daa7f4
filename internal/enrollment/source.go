// Package enrollment builds a subject's reference embeddings from the
// captures stored for each student.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalidRoll is returned for rolls that cannot be used as a directory name.
var ErrInvalidRoll = errors.New("invalid roll")

// Person is one student's captures, in sampling order.
type Person struct {
	Roll   string
	Images []string
}

// ImageSource lists and reads enrollment captures.
type ImageSource interface {
	People(ctx context.Context, subjectID int64) ([]Person, error)
	ReadImage(ctx context.Context, path string) ([]byte, error)
}

var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// DirSource stores captures as <root>/<subject>/<roll>/NNN.jpg.
type DirSource struct {
	root     string
	openFile func(name string, flag int, perm os.FileMode) (*os.File, error)
}

func NewDirSource(root string) *DirSource {
	return &DirSource{root: root, openFile: os.OpenFile}
}

func (s *DirSource) subjectDir(subjectID int64) string {
	return filepath.Join(s.root, strconv.FormatInt(subjectID, 10))
}

// People returns every roll directory of the subject with its images sorted
// by name. A subject without a directory has no people.
func (s *DirSource) People(ctx context.Context, subjectID int64) ([]Person, error) {
	entries, err := os.ReadDir(s.subjectDir(subjectID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read subject directory: %w", err)
	}

	var people []Person
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		images, err := s.images(filepath.Join(s.subjectDir(subjectID), e.Name()))
		if err != nil {
			return nil, err
		}
		people = append(people, Person{Roll: e.Name(), Images: images})
	}
	return people, nil
}

func (s *DirSource) images(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read roll directory: %w", err)
	}
	var images []string
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		images = append(images, filepath.Join(dir, e.Name()))
	}
	slices.Sort(images)
	return images, nil
}

func (s *DirSource) ReadImage(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// Save stores a capture as the next numbered JPEG of the student.
func (s *DirSource) Save(subjectID int64, roll string, data []byte) (string, error) {
	if !validRoll(roll) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRoll, roll)
	}
	dir := filepath.Join(s.subjectDir(subjectID), roll)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create roll directory: %w", err)
	}

	existing, err := s.images(dir)
	if err != nil {
		return "", err
	}
	for n := len(existing) + 1; ; n++ {
		path := filepath.Join(dir, fmt.Sprintf("%03d.jpg", n))
		f, err := s.openFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create capture: %w", err)
		}
		// A partial capture must not be picked up by training.
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("write capture: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("close capture: %w", err)
		}
		return path, nil
	}
}

func validRoll(roll string) bool {
	if roll == "" || roll == "." || roll == ".." || len(roll) > 64 {
		return false
	}
	return !strings.ContainsAny(roll, `/\`+"\x00")
}
