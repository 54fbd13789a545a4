// Package service holds the cross-store operations: bulk copy in both
// directions and duplicate cleanup in the cluster store. The two stores are
// independent copies; these operations are the only reconciliation points.
package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/santoshpalla27/user-app-redis-mysql/pkg/models"
	"github.com/santoshpalla27/user-app-redis-mysql/pkg/storage"
)

// ClusterUserStore is the widened contract the cluster store provides beyond
// plain CRUD.
type ClusterUserStore interface {
	storage.UserStore
	FindByEmail(ctx context.Context, email string) (*models.UserRecord, error)
	PutRecord(ctx context.Context, rec *models.UserRecord) error
	NewID() string
}

// CopyReport summarizes a bulk copy. Every record is attempted
// independently; failures are counted, never abort the batch.
type CopyReport struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Errors  int `json:"errors"`
}

// CleanupReport lists what duplicate cleanup changed.
type CleanupReport struct {
	Removed    []string          `json:"removed"`
	Reassigned map[string]string `json:"reassigned"`
	Remaining  int               `json:"remaining"`
}

// Users coordinates the two stores.
type Users struct {
	sql    storage.UserStore
	redis  ClusterUserStore
	logger zerolog.Logger
}

func NewUsers(sql storage.UserStore, redis ClusterUserStore, logger zerolog.Logger) *Users {
	return &Users{
		sql:    sql,
		redis:  redis,
		logger: logger.With().Str("component", "users-service").Logger(),
	}
}

// CopySQLToRedis copies every relational row into the cluster store. Rows
// are matched by email: an existing record keeps its id and gets its fields
// overwritten, a new one receives a generated id. Ids never carry over.
func (u *Users) CopySQLToRedis(ctx context.Context) (CopyReport, error) {
	rows, err := u.sql.List(ctx)
	if err != nil {
		return CopyReport{}, err
	}

	report := CopyReport{Total: len(rows)}
	for i := range rows {
		row := rows[i]
		if err := u.upsertByEmail(ctx, &row); err != nil {
			report.Errors++
			u.logger.Error().Str("email", row.Email).Err(err).Msg("copy to redis failed")
			continue
		}
		report.Success++
	}
	return report, nil
}

func (u *Users) upsertByEmail(ctx context.Context, row *models.UserRecord) error {
	existing, err := u.redis.FindByEmail(ctx, row.Email)
	if err != nil {
		return err
	}

	rec := *row
	if existing != nil {
		rec.Id = existing.Id
	} else {
		rec.Id = u.redis.NewID()
	}
	return u.redis.PutRecord(ctx, &rec)
}

// CopyRedisToSQL inserts every cluster record into the relational store. The
// store assigns fresh ids; duplicate emails count as per-record errors.
func (u *Users) CopyRedisToSQL(ctx context.Context) (CopyReport, error) {
	records, err := u.redis.List(ctx)
	if err != nil {
		return CopyReport{}, err
	}

	report := CopyReport{Total: len(records)}
	for i := range records {
		rec := models.UserRecord{
			Name:      records[i].Name,
			Email:     records[i].Email,
			Phone:     records[i].Phone,
			Address:   records[i].Address,
			CreatedAt: records[i].CreatedAt,
		}
		if err := u.sql.Insert(ctx, &rec); err != nil {
			report.Errors++
			u.logger.Error().Str("email", rec.Email).Err(err).Msg("copy to mysql failed")
			continue
		}
		report.Success++
	}
	return report, nil
}

// CleanupDuplicates enforces, after the fact, what the scan-then-insert
// check cannot guarantee under concurrency: one record per email. The oldest
// record of each group survives; the rest are deleted. Surviving records
// still carrying an all-digit legacy timestamp id are reassigned a generated
// token id with every other field preserved.
func (u *Users) CleanupDuplicates(ctx context.Context) (CleanupReport, error) {
	records, err := u.redis.List(ctx)
	if err != nil {
		return CleanupReport{}, err
	}

	report := CleanupReport{
		Removed:    []string{},
		Reassigned: map[string]string{},
	}

	byEmail := make(map[string][]models.UserRecord)
	for _, rec := range records {
		email := strings.ToLower(rec.Email)
		byEmail[email] = append(byEmail[email], rec)
	}

	for _, group := range byEmail {
		keeper := group[0]
		for _, rec := range group[1:] {
			if rec.CreatedAt.Before(keeper.CreatedAt) {
				keeper = rec
			}
		}

		for _, rec := range group {
			if rec.Id == keeper.Id {
				continue
			}
			if err := u.redis.Delete(ctx, rec.Id); err != nil {
				u.logger.Error().Str("id", rec.Id).Err(err).Msg("deleting duplicate failed")
				continue
			}
			report.Removed = append(report.Removed, rec.Id)
		}

		if isLegacyID(keeper.Id) {
			newID := u.redis.NewID()
			renamed := keeper
			renamed.Id = newID
			if err := u.redis.PutRecord(ctx, &renamed); err != nil {
				u.logger.Error().Str("id", keeper.Id).Err(err).Msg("reassigning legacy id failed")
				continue
			}
			if err := u.redis.Delete(ctx, keeper.Id); err != nil {
				u.logger.Error().Str("id", keeper.Id).Err(err).Msg("removing legacy key failed")
			}
			report.Reassigned[keeper.Id] = newID
		}
	}

	remaining, err := u.redis.List(ctx)
	if err != nil {
		return report, err
	}
	report.Remaining = len(remaining)
	return report, nil
}

// isLegacyID recognizes the timestamp-style ids older revisions generated:
// nothing but digits.
func isLegacyID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
