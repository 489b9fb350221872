// Package voicestore manages the filesystem-backed catalog of named
// reference-audio assets used to condition synthesis toward a specific
// speaker.
package voicestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/speech-gateway/internal/audio"
	"github.com/book-expert/speech-gateway/internal/core"
)

// Directory and file permissions for the voice catalog.
const (
	dirPermissions  = 0o750
	filePermissions = 0o600
)

// Static errors.
var (
	// ErrEmptyUpload indicates a missing or empty audio upload.
	ErrEmptyUpload = fmt.Errorf("%w: no audio file provided", core.ErrInvalidInput)

	// ErrInvalidVoiceName indicates a name that sanitizes to nothing.
	ErrInvalidVoiceName = fmt.Errorf("%w: invalid voice name", core.ErrInvalidInput)

	// ErrDeleteDefault indicates an attempt to delete the reserved entry.
	ErrDeleteDefault = fmt.Errorf("%w: cannot delete default voice", core.ErrInvalidInput)

	// ErrVoiceNotFound indicates the requested asset does not exist.
	ErrVoiceNotFound = fmt.Errorf("%w: voice not found", core.ErrNotFound)
)

// Builtin entry metadata.
const (
	builtinVoiceName        = "Default Voice"
	builtinVoiceDescription = "Built-in default voice (no reference audio)"
)

// resolveExtensions is the fixed lookup order for custom assets. New uploads
// are always normalized to WAV; the MP3 entry keeps catalogs written by older
// deployments resolvable.
var resolveExtensions = []string{audio.ExtWAV, audio.ExtMP3}

// Store is a directory-backed voice catalog. The directory is scanned on
// each listing; voice counts are small and management operations infrequent,
// so no in-memory cache is kept.
type Store struct {
	dir        string
	targetRate int
	log        *logger.Logger
}

// New creates a Store rooted at dir, creating the directory if needed.
// Uploaded assets are normalized to mono WAV at targetRate.
func New(dir string, targetRate int, log *logger.Logger) (*Store, error) {
	mkdirErr := os.MkdirAll(dir, dirPermissions)
	if mkdirErr != nil {
		return nil, fmt.Errorf("failed to create voice directory %s: %w", dir, mkdirErr)
	}

	return &Store{
		dir:        dir,
		targetRate: targetRate,
		log:        log,
	}, nil
}

// Dir returns the catalog directory.
func (s *Store) Dir() string {
	return s.dir
}

// List returns the voice catalog: the builtin default entry first, then
// custom assets in filesystem enumeration order. Two files sharing a stem
// across recognized extensions collapse into the first-found entry.
func (s *Store) List() ([]core.VoiceAsset, error) {
	assets := []core.VoiceAsset{builtinAsset()}

	seen := map[string]struct{}{core.DefaultVoiceID: {}}

	for _, ext := range resolveExtensions {
		matches, globErr := filepath.Glob(filepath.Join(s.dir, "*"+ext))
		if globErr != nil {
			return nil, fmt.Errorf("failed to scan voice directory: %w", globErr)
		}

		sort.Strings(matches)

		for _, path := range matches {
			stem := strings.TrimSuffix(filepath.Base(path), ext)

			_, duplicate := seen[stem]
			if duplicate {
				continue
			}

			seen[stem] = struct{}{}

			assets = append(assets, s.customAsset(stem, path))
		}
	}

	return assets, nil
}

// Create sanitizes the requested name, normalizes the uploaded audio, and
// writes it as a custom asset. An existing asset under the same slug is
// silently overwritten: the last upload wins.
func (s *Store) Create(data []byte, filename, name string) (core.VoiceAsset, error) {
	if len(data) == 0 || filename == "" {
		return core.VoiceAsset{}, ErrEmptyUpload
	}

	slug := SanitizeVoiceName(name)
	if slug == "" {
		return core.VoiceAsset{}, ErrInvalidVoiceName
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !audio.SupportedUpload(ext) {
		return core.VoiceAsset{}, fmt.Errorf(
			"%w: unsupported audio format %q, use WAV, MP3, OGG, or FLAC",
			core.ErrInvalidInput, ext,
		)
	}

	normalized, normalizeErr := audio.NormalizeReference(data, ext, s.targetRate)
	if normalizeErr != nil {
		return core.VoiceAsset{}, normalizeErr
	}

	path := filepath.Join(s.dir, slug+audio.ExtWAV)

	writeErr := s.writeAsset(path, normalized)
	if writeErr != nil {
		return core.VoiceAsset{}, fmt.Errorf("%w: %w", core.ErrProcessing, writeErr)
	}

	s.log.Info("Stored voice asset '%s' at %s (%d bytes)", slug, path, len(normalized))

	return s.customAsset(slug, path), nil
}

// Resolve maps a voice ID to a reference audio path. The reserved default ID
// resolves to no reference without touching the disk. The boolean reports
// whether a reference was found; callers treat a miss as "use the engine
// default" rather than an error.
func (s *Store) Resolve(id string) (string, bool) {
	if id == core.DefaultVoiceID {
		return "", false
	}

	for _, ext := range resolveExtensions {
		path := filepath.Join(s.dir, id+ext)

		_, statErr := os.Stat(path)
		if statErr == nil {
			return path, true
		}
	}

	return "", false
}

// Delete removes a custom asset. The reserved default ID is rejected as
// invalid input; a missing asset is reported as not found.
func (s *Store) Delete(id string) error {
	if id == core.DefaultVoiceID {
		return ErrDeleteDefault
	}

	for _, ext := range resolveExtensions {
		path := filepath.Join(s.dir, id+ext)

		_, statErr := os.Stat(path)
		if statErr != nil {
			continue
		}

		removeErr := os.Remove(path)
		if removeErr != nil {
			return fmt.Errorf("failed to delete voice asset '%s': %w", id, removeErr)
		}

		s.log.Info("Deleted voice asset '%s'", id)

		return nil
	}

	return fmt.Errorf("%w: '%s'", ErrVoiceNotFound, id)
}

// writeAsset writes the normalized bytes through a temporary file in the same
// directory so a concurrent reader never observes a partial asset.
func (s *Store) writeAsset(path string, data []byte) error {
	tempPath := filepath.Join(s.dir, "."+uuid.NewString()+".tmp")

	writeErr := os.WriteFile(tempPath, data, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write voice asset: %w", writeErr)
	}

	renameErr := os.Rename(tempPath, path)
	if renameErr != nil {
		_ = os.Remove(tempPath)

		return fmt.Errorf("failed to finalize voice asset: %w", renameErr)
	}

	return nil
}

func (s *Store) customAsset(stem, path string) core.VoiceAsset {
	return core.VoiceAsset{
		ID:          stem,
		Name:        DisplayName(stem),
		Description: fmt.Sprintf("Custom voice from %s", filepath.Base(path)),
		Origin:      core.OriginCustom,
		Path:        path,
		SampleRate:  s.targetRate,
		Channels:    1,
	}
}

func builtinAsset() core.VoiceAsset {
	return core.VoiceAsset{
		ID:          core.DefaultVoiceID,
		Name:        builtinVoiceName,
		Description: builtinVoiceDescription,
		Origin:      core.OriginBuiltin,
	}
}

// SanitizeVoiceName maps a requested display name to a catalog slug: letters
// and digits pass through, '_' and '-' are kept, everything else becomes '_',
// and the result is lower-cased. An empty result means the name is unusable.
func SanitizeVoiceName(name string) string {
	var builder strings.Builder

	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			builder.WriteRune(unicode.ToLower(r))
		case r == '_' || r == '-':
			builder.WriteRune(r)
		default:
			builder.WriteByte('_')
		}
	}

	return builder.String()
}

// DisplayName derives a human-readable name from a slug: underscores become
// spaces and each word is title-cased.
func DisplayName(slug string) string {
	words := strings.Fields(strings.ReplaceAll(slug, "_", " "))
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}

	return strings.Join(words, " ")
}
