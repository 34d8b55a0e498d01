package processor

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// SupportedExtensions lists the recognized input extensions, lowercase
// with their leading dot.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".tif", ".webp"}

var supportedExt = func() map[string]bool {
	m := make(map[string]bool, len(SupportedExtensions))
	for _, ext := range SupportedExtensions {
		m[ext] = true
	}
	return m
}()

// IsSupported reports whether path has a recognized image extension in any case.
func IsSupported(path string) bool {
	return supportedExt[strings.ToLower(filepath.Ext(path))]
}

type Scanner struct {
	fs        afero.Fs
	validator *Validator
}

func NewScanner(fs afero.Fs, validator *Validator) *Scanner {
	return &Scanner{fs: fs, validator: validator}
}

// Scan lists the valid images directly inside inputDir in path order.
// A missing directory yields ErrInputMissing and no files.
func (s *Scanner) Scan(inputDir string) ([]ImageFile, error) {
	paths, err := s.candidates(inputDir)
	if err != nil {
		return nil, err
	}

	var files []ImageFile
	for _, path := range paths {
		if file, ok := s.validator.accept(path); ok {
			files = append(files, file)
		}
	}
	return files, nil
}

// candidates returns supported paths without validating them.
func (s *Scanner) candidates(inputDir string) ([]string, error) {
	info, err := s.fs.Stat(inputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrInputMissing
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, ErrInputMissing
	}

	entries, err := afero.ReadDir(s.fs, inputDir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(entries))
	var paths []string
	for _, entry := range entries {
		if !entry.Mode().IsRegular() || !IsSupported(entry.Name()) {
			continue
		}
		path := filepath.Join(inputDir, entry.Name())
		if seen[path] {
			continue
		}
		seen[path] = true
		paths = append(paths, path)
	}

	sort.Strings(paths)
	return paths, nil
}
