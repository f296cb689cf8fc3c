package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/car-rental/internal/model"
)

// CreateRegion создаёт регион.
func (r *PostgresRepository) CreateRegion(ctx context.Context, rg *model.Region) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO regions (name) VALUES ($1) RETURNING id`, rg.Name).Scan(&rg.ID)
	return mapError(err, "create region")
}

// ListRegions возвращает все регионы.
func (r *PostgresRepository) ListRegions(ctx context.Context) ([]model.Region, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM regions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select regions: %w", err)
	}
	defer rows.Close()

	var res []model.Region
	for rows.Next() {
		var rg model.Region
		if err := rows.Scan(&rg.ID, &rg.Name); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		res = append(res, rg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// UpdateRegion переименовывает регион.
func (r *PostgresRepository) UpdateRegion(ctx context.Context, rg *model.Region) error {
	tag, err := r.pool.Exec(ctx, `UPDATE regions SET name = $2 WHERE id = $1`, rg.ID, rg.Name)
	if err != nil {
		return mapError(err, "update region")
	}
	return expectAffected(tag, "update region")
}

// DeleteRegion удаляет регион вместе с его районами.
func (r *PostgresRepository) DeleteRegion(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM regions WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete region")
	}
	return expectAffected(tag, "delete region")
}

// CreateDistrict создаёт район.
func (r *PostgresRepository) CreateDistrict(ctx context.Context, d *model.District) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO districts (name, region_id) VALUES ($1, $2) RETURNING id`,
		d.Name, d.RegionID,
	).Scan(&d.ID)
	return mapError(err, "create district")
}

// ListDistricts возвращает районы. Если regionID не nil, только районы этого региона.
func (r *PostgresRepository) ListDistricts(ctx context.Context, regionID *int64) ([]model.District, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, region_id FROM districts
		 WHERE $1::bigint IS NULL OR region_id = $1
		 ORDER BY name`,
		regionID,
	)
	if err != nil {
		return nil, fmt.Errorf("select districts: %w", err)
	}
	defer rows.Close()

	var res []model.District
	for rows.Next() {
		var d model.District
		if err := rows.Scan(&d.ID, &d.Name, &d.RegionID); err != nil {
			return nil, fmt.Errorf("scan district: %w", err)
		}
		res = append(res, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// UpdateDistrict обновляет район.
func (r *PostgresRepository) UpdateDistrict(ctx context.Context, d *model.District) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE districts SET name = $2, region_id = $3 WHERE id = $1`,
		d.ID, d.Name, d.RegionID,
	)
	if err != nil {
		return mapError(err, "update district")
	}
	return expectAffected(tag, "update district")
}

// DeleteDistrict удаляет район.
func (r *PostgresRepository) DeleteDistrict(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM districts WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete district")
	}
	return expectAffected(tag, "delete district")
}
