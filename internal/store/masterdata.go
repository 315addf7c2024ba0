package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/heritage-trails/admin-api/internal/model"
)

const masterDataColumns = `id, kind, code, name, description, sort_order, active, created_at, updated_at`

type masterDataStore struct {
	db DBTX
}

func scanMasterData(row pgx.Row) (*model.MasterData, error) {
	var md model.MasterData
	err := row.Scan(
		&md.ID, &md.Kind, &md.Code, &md.Name, &md.Description, &md.SortOrder, &md.Active,
		&md.CreatedAt, &md.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &md, nil
}

func (s *masterDataStore) List(ctx context.Context, kind string, includeInactive bool) ([]model.MasterData, error) {
	var w where
	if kind != "" {
		w.add("kind = ?", kind)
	}
	if !includeInactive {
		w.add("active")
	}

	rows, err := s.db.Query(ctx, `SELECT `+masterDataColumns+` FROM master_data`+w.String()+
		` ORDER BY kind, sort_order, name`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.MasterData{}
	for rows.Next() {
		md, err := scanMasterData(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *md)
	}
	return out, rows.Err()
}

func (s *masterDataStore) Get(ctx context.Context, id string) (*model.MasterData, error) {
	return scanMasterData(s.db.QueryRow(ctx, `SELECT `+masterDataColumns+` FROM master_data WHERE id = $1`, id))
}

func (s *masterDataStore) Create(ctx context.Context, md *model.MasterData) error {
	row := s.db.QueryRow(ctx, `INSERT INTO master_data (kind, code, name, description, sort_order, active)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING `+masterDataColumns, md.Kind, md.Code, md.Name, md.Description, md.SortOrder)
	created, err := scanMasterData(row)
	if err != nil {
		return err
	}
	*md = *created
	return nil
}

func (s *masterDataStore) Update(ctx context.Context, md *model.MasterData) error {
	row := s.db.QueryRow(ctx, `UPDATE master_data
		SET code = $2, name = $3, description = $4, sort_order = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+masterDataColumns, md.ID, md.Code, md.Name, md.Description, md.SortOrder)
	updated, err := scanMasterData(row)
	if err != nil {
		return err
	}
	*md = *updated
	return nil
}

func (s *masterDataStore) Deactivate(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `UPDATE master_data SET active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *masterDataStore) Translations(ctx context.Context, ids []string) ([]model.Translation, error) {
	rows, err := s.db.Query(ctx, `SELECT master_data_id, language, field, value, machine, updated_at
		FROM master_data_translations
		WHERE master_data_id = ANY($1)
		ORDER BY master_data_id, language, field`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Translation{}
	for rows.Next() {
		var t model.Translation
		if err := rows.Scan(&t.MasterDataID, &t.Language, &t.Field, &t.Value, &t.Machine, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *masterDataStore) UpsertTranslation(ctx context.Context, t *model.Translation) error {
	return s.db.QueryRow(ctx, `INSERT INTO master_data_translations (master_data_id, language, field, value, machine)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (master_data_id, language, field)
		DO UPDATE SET value = EXCLUDED.value, machine = EXCLUDED.machine, updated_at = now()
		RETURNING updated_at`, t.MasterDataID, t.Language, t.Field, t.Value, t.Machine).Scan(&t.UpdatedAt)
}
