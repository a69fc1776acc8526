package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/utils"
)

// storeErr maps gorm errors to the service taxonomy. notFound is returned for
// a missing record; anything already typed passes through.
func storeErr(err error, notFound *apperr.Error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil {
		return notFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("resource already exists")
	}
	return apperr.Internal(err)
}

// paged runs a count then a page fetch with the same scoped query. fetch
// scopes (preloads) apply to the page fetch only.
func paged[T any](query *gorm.DB, page utils.Page, order string, out *[]T, fetch ...func(*gorm.DB) *gorm.DB) (utils.Pagination, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return utils.Pagination{}, apperr.Internal(err)
	}
	q := query.Session(&gorm.Session{}).Scopes(fetch...)
	if order != "" {
		q = q.Order(order)
	}
	if err := q.Offset(page.Offset()).Limit(page.Limit).Find(out).Error; err != nil {
		return utils.Pagination{}, apperr.Internal(err)
	}
	return page.Paginate(total), nil
}

// likePattern builds a lowercase LIKE pattern, escaping wildcards in s.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}

// bumpVersion is the optimistic check guarding the account aggregate: it
// succeeds only if nobody else changed the account since version was read.
func bumpVersion(ctx context.Context, tx *gorm.DB, accountID uint, version int) error {
	res := tx.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND version = ?", accountID, version).
		UpdateColumn("version", gorm.Expr("version + 1"))
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrConcurrentUpdate
	}
	return nil
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
func normalizePhone(s string) string { return strings.TrimSpace(s) }
