package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"creatorpack/internal/config"
	"creatorpack/internal/language"
	"creatorpack/internal/youtube"
)

// User-facing validation messages.
const (
	FileRequiredMessage    = "File is required"
	YouTubeURLRequired     = "YouTube URL is required"
	InvalidYouTubeURL      = "Invalid YouTube URL"
	invalidLanguageMessage = "Unsupported language code"
	presetTooLongMessage   = "Preset id must be at most 128 characters"
)

const maxPresetIDLength = 128

// rules owns the validator instance and the messages its custom tags map to.
type rules struct {
	validate   *validator.Validate
	allowed    map[string]struct{}
	maxBytes   int64
	extMessage string
	sizeMsg    string
}

func newRules(cfg config.Ingest) *rules {
	r := &rules{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		allowed:  make(map[string]struct{}, len(cfg.AllowedExtensions)),
		maxBytes: cfg.MaxUploadBytes,
	}
	names := make([]string, 0, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		r.allowed[strings.ToLower(ext)] = struct{}{}
		names = append(names, strings.TrimPrefix(ext, "."))
	}
	r.extMessage = fmt.Sprintf("Unsupported file type. Please upload audio/video files (%s).", strings.Join(names, ", "))
	r.sizeMsg = fmt.Sprintf("File is too large. The upload limit is %s.", formatBytes(cfg.MaxUploadBytes))

	mustRegister(r.validate, "media_ext", r.mediaExtension)
	mustRegister(r.validate, "upload_limit", r.uploadLimit)
	mustRegister(r.validate, "language_code", languageCode)
	mustRegister(r.validate, "youtube_url", youtubeURL)
	return r
}

// mustRegister adds a custom tag and panics if the validator refuses it. The
// tags are fixed at compile time, so a failure is a programming error.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("ingest: register %q validation: %v", tag, err))
	}
}

func (r *rules) mediaExtension(fl validator.FieldLevel) bool {
	ext := strings.ToLower(filepath.Ext(fl.Field().String()))
	_, ok := r.allowed[ext]
	return ok
}

func (r *rules) uploadLimit(fl validator.FieldLevel) bool {
	size := fl.Field().Int()
	return size >= 0 && (r.maxBytes <= 0 || size <= r.maxBytes)
}

func languageCode(fl validator.FieldLevel) bool {
	_, err := language.Normalize(fl.Field().String())
	return err == nil
}

func youtubeURL(fl validator.FieldLevel) bool {
	_, ok := youtube.ExtractVideoID(fl.Field().String())
	return ok
}

// check validates s and returns the message for the first failing rule, or
// "" when s is valid.
func (r *rules) check(s any) string {
	err := r.validate.Struct(s)
	if err == nil {
		return ""
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	fe := fieldErrs[0]
	switch fe.Field() + "." + fe.Tag() {
	case "OriginalName.required":
		return FileRequiredMessage
	case "OriginalName.media_ext":
		return r.extMessage
	case "Size.upload_limit":
		return r.sizeMsg
	case "URL.required":
		return YouTubeURLRequired
	case "URL.youtube_url":
		return InvalidYouTubeURL
	case "Language.language_code":
		return invalidLanguageMessage
	case "PresetID.max":
		return presetTooLongMessage
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func formatBytes(n int64) string {
	const mib = 1024 * 1024
	if n >= mib && n%mib == 0 {
		return fmt.Sprintf("%d MiB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
