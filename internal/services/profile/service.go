package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/installments-tracker/internal/common"
	"github.com/joseph-ayodele/installments-tracker/internal/entity"
	parsing "github.com/joseph-ayodele/installments-tracker/internal/profile"
	"github.com/joseph-ayodele/installments-tracker/internal/repository"
)

// Service handles parsing profile business logic.
type Service struct {
	store  repository.ProfileStore
	logger *slog.Logger
}

// NewService creates a new profile service. A nil store is allowed: the
// service then only knows the built-in profiles.
func NewService(store repository.ProfileStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// SaveProfileRequest represents profile creation or update parameters.
type SaveProfileRequest struct {
	Key              string   `json:"key" yaml:"key"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
	Keywords         []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	SeqPattern       string   `json:"seq_pattern,omitempty" yaml:"seq_pattern,omitempty"`
	DatePattern      string   `json:"date_pattern,omitempty" yaml:"date_pattern,omitempty"`
	AmountPattern    string   `json:"amount_pattern,omitempty" yaml:"amount_pattern,omitempty"`
	TributoPattern   string   `json:"tributo_pattern,omitempty" yaml:"tributo_pattern,omitempty"`
	AnnoPattern      string   `json:"anno_pattern,omitempty" yaml:"anno_pattern,omitempty"`
	DebitoPattern    string   `json:"debito_pattern,omitempty" yaml:"debito_pattern,omitempty"`
	InteressiPattern string   `json:"interessi_pattern,omitempty" yaml:"interessi_pattern,omitempty"`
}

type document struct {
	Profiles []SaveProfileRequest `json:"profiles" yaml:"profiles"`
}

func (req SaveProfileRequest) record() *entity.ParsingProfile {
	keywords := make([]string, 0, len(req.Keywords))
	for _, k := range req.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, strings.ToLower(k))
		}
	}
	return &entity.ParsingProfile{
		Key:              strings.TrimSpace(req.Key),
		Description:      strings.TrimSpace(req.Description),
		Keywords:         keywords,
		SeqPattern:       req.SeqPattern,
		DatePattern:      req.DatePattern,
		AmountPattern:    req.AmountPattern,
		TributoPattern:   req.TributoPattern,
		AnnoPattern:      req.AnnoPattern,
		DebitoPattern:    req.DebitoPattern,
		InteressiPattern: req.InteressiPattern,
	}
}

func validateRequest(req SaveProfileRequest) error {
	validator := common.NewValidator()
	validator.Field("key", strings.TrimSpace(req.Key), common.Required, common.ProfileKey)
	validator.Field("description", req.Description, common.MaxLength(200))
	validator.Field("seq_pattern", req.SeqPattern, common.Pattern)
	validator.Field("date_pattern", req.DatePattern, common.Pattern)
	validator.Field("amount_pattern", req.AmountPattern, common.Pattern)
	validator.Field("tributo_pattern", req.TributoPattern, common.Pattern)
	validator.Field("anno_pattern", req.AnnoPattern, common.Pattern)
	validator.Field("debito_pattern", req.DebitoPattern, common.Pattern)
	validator.Field("interessi_pattern", req.InteressiPattern, common.Pattern)
	return common.ValidateAndReturnError(validator)
}

func (s *Service) requireStore() error {
	if s.store == nil {
		return common.InternalError("no profile store configured")
	}
	return nil
}

// CreateProfile stores a new profile. The key must not exist yet.
func (s *Service) CreateProfile(ctx context.Context, req SaveProfileRequest) (*entity.ParsingProfile, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := s.requireStore(); err != nil {
		return nil, err
	}

	p, err := s.store.Create(ctx, req.record())
	if errors.Is(err, repository.ErrProfileExists) {
		return nil, common.AlreadyExistsError(fmt.Sprintf("profile %q already exists", req.Key))
	}
	if err != nil {
		return nil, common.InternalErrorf("create profile: %v", err)
	}

	s.logger.Info("profile created successfully", "profile_id", p.ID, "key", p.Key)
	return p, nil
}

// SaveProfile creates the profile or replaces the patterns of an existing one.
func (s *Service) SaveProfile(ctx context.Context, req SaveProfileRequest) (*entity.ParsingProfile, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := s.requireStore(); err != nil {
		return nil, err
	}

	rec := req.record()
	p, err := s.store.Update(ctx, rec)
	if errors.Is(err, common.ErrNotFound) {
		p, err = s.store.Create(ctx, rec)
	}
	if err != nil {
		return nil, common.InternalErrorf("save profile: %v", err)
	}

	s.logger.Info("profile saved successfully", "profile_id", p.ID, "key", p.Key)
	return p, nil
}

// ListProfiles returns all persisted profiles.
func (s *Service) ListProfiles(ctx context.Context) ([]entity.ParsingProfile, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	s.logger.Info("listing profiles")

	plist, err := s.store.List(ctx)
	if err != nil {
		return nil, common.InternalErrorf("list profiles: %v", err)
	}

	s.logger.Info("profiles listed successfully", "count", len(plist))
	return plist, nil
}

func (s *Service) DeleteProfile(ctx context.Context, key string) error {
	if err := s.requireStore(); err != nil {
		return err
	}
	err := s.store.Delete(ctx, key)
	if errors.Is(err, common.ErrNotFound) {
		return common.NotFoundError(fmt.Sprintf("profile %q not found", key))
	}
	if err != nil {
		return common.InternalErrorf("delete profile: %v", err)
	}
	s.logger.Info("profile deleted", "key", key)
	return nil
}

// ImportFile reads a YAML or JSON profile document and saves every profile
// in it. Nothing is written unless the whole document validates.
func (s *Service) ImportFile(ctx context.Context, path string) ([]*entity.ParsingProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.InvalidArgumentErrorf("read %s: %v", path, err)
	}
	return s.Import(ctx, data, filepath.Ext(path))
}

// Import saves the profiles of a document; format is a file extension
// (".yaml", ".yml" or ".json").
func (s *Service) Import(ctx context.Context, data []byte, format string) ([]*entity.ParsingProfile, error) {
	jsonData, err := toJSON(data, format)
	if err != nil {
		return nil, common.InvalidArgumentErrorf("decode profiles: %v", err)
	}
	if err := validateDocument(jsonData); err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}

	var doc document
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, common.InvalidArgumentErrorf("decode profiles: %v", err)
	}
	for i, req := range doc.Profiles {
		if err := validateRequest(req); err != nil {
			return nil, common.InvalidArgumentErrorf("profiles[%d]: %v", i, err)
		}
	}

	out := make([]*entity.ParsingProfile, 0, len(doc.Profiles))
	for _, req := range doc.Profiles {
		p, err := s.SaveProfile(ctx, req)
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	s.logger.Info("profiles imported", "count", len(out))
	return out, nil
}

func toJSON(data []byte, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		return data, nil
	case "yaml", "yml":
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return json.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported profile format %q", format)
	}
}

// Seed registers every persisted profile in reg. Records that fail to
// compile are skipped with a warning. It returns the number registered.
func (s *Service) Seed(ctx context.Context, reg *parsing.Registry) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	plist, err := s.store.List(ctx)
	if err != nil {
		return 0, common.InternalErrorf("list profiles: %v", err)
	}

	n := 0
	for _, rec := range plist {
		p, err := parsing.FromRecord(rec)
		if err != nil {
			s.logger.Warn("skipping invalid profile", "key", rec.Key, "error", err)
			continue
		}
		if err := reg.Register(p); err != nil {
			s.logger.Warn("skipping invalid profile", "key", rec.Key, "error", err)
			continue
		}
		n++
	}
	s.logger.Info("profiles seeded", "count", n, "builtin_overrides", countBuiltin(plist))
	return n, nil
}

func countBuiltin(plist []entity.ParsingProfile) int {
	n := 0
	for _, p := range plist {
		if parsing.ID(p.Key).IsBuiltin() {
			n++
		}
	}
	return n
}
