package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/heritage-trails/admin-api/internal/coalesce"
	"github.com/heritage-trails/admin-api/internal/model"
	"github.com/heritage-trails/admin-api/internal/store"
	"github.com/heritage-trails/admin-api/pkg/logger"
	"github.com/heritage-trails/admin-api/pkg/metrics"
)

var languageTag = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z0-9]{2,8})*$`)

// ErrTranslationUnavailable is returned when no translation provider is configured.
var ErrTranslationUnavailable = errors.New("machine translation is not configured")

// Translator translates a text into a language.
type Translator interface {
	Translate(ctx context.Context, text, lang string) (string, error)
}

// MasterDataService manages reference tables and their translations.
type MasterDataService struct {
	masterData store.MasterDataStore
	translator Translator
	inflight   coalesce.Group[*model.Translation]
	logger     *logger.Logger
}

// NewMasterDataService creates a new master data service. translator may
// be nil, in which case AutoTranslate is unavailable.
func NewMasterDataService(masterData store.MasterDataStore, translator Translator, log *logger.Logger) *MasterDataService {
	return &MasterDataService{
		masterData: masterData,
		translator: translator,
		logger:     log.Named("master_data"),
	}
}

// List returns master data of one kind (all kinds when empty) with translations.
func (s *MasterDataService) List(ctx context.Context, kind string, includeInactive bool) ([]model.MasterData, error) {
	items, err := s.masterData.List(ctx, kind, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("listing master data: %w", err)
	}
	if len(items) == 0 {
		return items, nil
	}

	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	translations, err := s.masterData.Translations(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading translations: %w", err)
	}

	byID := make(map[string][]model.Translation, len(items))
	for _, t := range translations {
		byID[t.MasterDataID] = append(byID[t.MasterDataID], t)
	}
	for i := range items {
		items[i].Translations = byID[items[i].ID]
	}
	return items, nil
}

// Get returns one row with its translations.
func (s *MasterDataService) Get(ctx context.Context, id string) (*model.MasterData, error) {
	md, err := s.masterData.Get(ctx, id)
	if err != nil {
		return nil, storeErr("loading master data", err)
	}
	translations, err := s.masterData.Translations(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("loading translations: %w", err)
	}
	md.Translations = translations
	return md, nil
}

// Create adds a row.
func (s *MasterDataService) Create(ctx context.Context, session *model.Session, req model.MasterDataRequest) (*model.MasterData, error) {
	if strings.TrimSpace(req.Kind) == "" {
		return nil, invalid("kind", "is required")
	}
	if err := validateMasterData(req); err != nil {
		return nil, err
	}

	md := &model.MasterData{
		Kind:        strings.TrimSpace(req.Kind),
		Code:        strings.TrimSpace(req.Code),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		SortOrder:   req.SortOrder,
	}
	if err := s.masterData.Create(ctx, md); err != nil {
		return nil, storeErr("creating master data", err)
	}

	s.logger.Info("master data created",
		zap.String("id", md.ID),
		zap.String("kind", md.Kind),
		zap.String("staff_id", session.StaffID),
	)
	return md, nil
}

// Update changes code, name, description and ordering. The kind is fixed.
func (s *MasterDataService) Update(ctx context.Context, session *model.Session, id string, req model.MasterDataRequest) (*model.MasterData, error) {
	if err := validateMasterData(req); err != nil {
		return nil, err
	}

	md, err := s.masterData.Get(ctx, id)
	if err != nil {
		return nil, storeErr("loading master data", err)
	}
	md.Code = strings.TrimSpace(req.Code)
	md.Name = strings.TrimSpace(req.Name)
	md.Description = req.Description
	md.SortOrder = req.SortOrder

	if err := s.masterData.Update(ctx, md); err != nil {
		return nil, storeErr("updating master data", err)
	}

	s.logger.Info("master data updated", zap.String("id", id), zap.String("staff_id", session.StaffID))
	return md, nil
}

// Deactivate hides a row from the apps. Rows are never deleted.
func (s *MasterDataService) Deactivate(ctx context.Context, session *model.Session, id string) error {
	if err := s.masterData.Deactivate(ctx, id); err != nil {
		return storeErr("deactivating master data", err)
	}
	s.logger.Info("master data deactivated", zap.String("id", id), zap.String("staff_id", session.StaffID))
	return nil
}

// UpsertTranslation stores a hand-written translation.
func (s *MasterDataService) UpsertTranslation(ctx context.Context, session *model.Session, id string, req model.TranslationRequest) (*model.Translation, error) {
	if err := validateTranslationTarget(req.Language, req.Field); err != nil {
		return nil, err
	}
	value := strings.TrimSpace(req.Value)
	if value == "" {
		return nil, invalid("value", "is required")
	}
	if _, err := s.masterData.Get(ctx, id); err != nil {
		return nil, storeErr("loading master data", err)
	}

	t := &model.Translation{
		MasterDataID: id,
		Language:     req.Language,
		Field:        req.Field,
		Value:        value,
	}
	if err := s.masterData.UpsertTranslation(ctx, t); err != nil {
		return nil, storeErr("storing translation", err)
	}

	s.logger.Info("translation saved",
		zap.String("id", id),
		zap.String("lang", t.Language),
		zap.String("field", t.Field),
		zap.String("staff_id", session.StaffID),
	)
	return t, nil
}

// AutoTranslate machine-translates one field into lang and stores the
// result. Requests are coalesced per id, field and language: while one
// translation runs, only the newest waiting request is kept and older
// waiting ones fail with coalesce.ErrSuperseded.
func (s *MasterDataService) AutoTranslate(ctx context.Context, session *model.Session, id string, req model.AutoTranslateRequest) (*model.Translation, error) {
	if s.translator == nil {
		return nil, ErrTranslationUnavailable
	}
	if err := validateTranslationTarget(req.Language, req.Field); err != nil {
		return nil, err
	}

	key := id + ":" + req.Field + ":" + req.Language
	t, err := s.inflight.Do(ctx, key, func(ctx context.Context) (*model.Translation, error) {
		return s.translate(ctx, id, req.Field, req.Language)
	})
	switch {
	case errors.Is(err, coalesce.ErrSuperseded):
		metrics.TranslationsTotal.WithLabelValues("superseded").Inc()
		return nil, err
	case err != nil:
		metrics.TranslationsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	metrics.TranslationsTotal.WithLabelValues("success").Inc()
	s.logger.Info("field auto-translated",
		zap.String("id", id),
		zap.String("lang", req.Language),
		zap.String("field", req.Field),
		zap.String("staff_id", session.StaffID),
	)
	return t, nil
}

func (s *MasterDataService) translate(ctx context.Context, id, field, lang string) (*model.Translation, error) {
	md, err := s.masterData.Get(ctx, id)
	if err != nil {
		return nil, storeErr("loading master data", err)
	}

	source := md.Name
	if field == model.FieldDescription {
		if md.Description == nil || strings.TrimSpace(*md.Description) == "" {
			return nil, invalid("field", "description is empty")
		}
		source = *md.Description
	}

	value, err := s.translator.Translate(ctx, source, lang)
	if err != nil {
		return nil, err
	}

	t := &model.Translation{
		MasterDataID: id,
		Language:     lang,
		Field:        field,
		Value:        value,
		Machine:      true,
	}
	if err := s.masterData.UpsertTranslation(ctx, t); err != nil {
		return nil, storeErr("storing translation", err)
	}
	return t, nil
}

func validateMasterData(req model.MasterDataRequest) error {
	if strings.TrimSpace(req.Code) == "" {
		return invalid("code", "is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return invalid("name", "is required")
	}
	return nil
}

func validateTranslationTarget(lang, field string) error {
	if !languageTag.MatchString(lang) {
		return invalid("language", "must be a language tag such as fr or pt-BR")
	}
	if field != model.FieldName && field != model.FieldDescription {
		return invalid("field", "must be name or description")
	}
	return nil
}
