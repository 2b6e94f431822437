package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"localdrive/internal/domain"
)

const itemColumns = `id, name, size_bytes, media_type, content, is_folder, parent_id, share_id, shared_at, created_at, trashed_at`

const upsertItemQuery = `
	INSERT INTO %s (id, name, size_bytes, media_type, content, is_folder, parent_id, share_id, shared_at, created_at, trashed_at)
	VALUES (:id, :name, :size_bytes, :media_type, :content, :is_folder, :parent_id, :share_id, :shared_at, :created_at, :trashed_at)
	ON CONFLICT (id) DO UPDATE SET
		name = excluded.name,
		size_bytes = excluded.size_bytes,
		media_type = excluded.media_type,
		content = excluded.content,
		is_folder = excluded.is_folder,
		parent_id = excluded.parent_id,
		share_id = excluded.share_id,
		shared_at = excluded.shared_at,
		created_at = excluded.created_at,
		trashed_at = excluded.trashed_at`

// ItemRepository хранит элементы в двух коллекциях: активной и корзине.
// Схема у обеих таблиц одинаковая, поэтому элемент переносится между ними без преобразований.
type ItemRepository struct {
	db *sqlx.DB
}

func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func tableName(c domain.Collection) (string, error) {
	if !c.Valid() {
		return "", domain.NewValidation("unknown collection %q", c)
	}
	return string(c), nil
}

// Get возвращает элемент из коллекции или NotFoundError
func (r *ItemRepository) Get(ctx context.Context, c domain.Collection, id string) (*domain.Item, error) {
	table, err := tableName(c)
	if err != nil {
		return nil, err
	}
	return getItem(ctx, r.db, table, id)
}

// queryer - общий интерфейс *sqlx.DB и *sqlx.Tx
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func getItem(ctx context.Context, q queryer, table, id string) (*domain.Item, error) {
	var item domain.Item
	query := q.Rebind(fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, itemColumns, table))
	if err := sqlx.GetContext(ctx, q, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("item %s not found in %s", id, table)
		}
		return nil, fmt.Errorf("failed to get item %s from %s: %w", id, table, err)
	}
	return &item, nil
}

// GetAll возвращает все элементы коллекции
func (r *ItemRepository) GetAll(ctx context.Context, c domain.Collection) ([]domain.Item, error) {
	table, err := tableName(c)
	if err != nil {
		return nil, err
	}

	items := []domain.Item{}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at`, itemColumns, table)
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	return items, nil
}

// Put вставляет или полностью заменяет элемент по идентификатору
func (r *ItemRepository) Put(ctx context.Context, c domain.Collection, item *domain.Item) error {
	table, err := tableName(c)
	if err != nil {
		return err
	}
	return putItem(ctx, r.db, table, item)
}

func putItem(ctx context.Context, e sqlx.ExtContext, table string, item *domain.Item) error {
	if _, err := sqlx.NamedExecContext(ctx, e, fmt.Sprintf(upsertItemQuery, table), item); err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflict("share id of item %s is already in use", item.ID)
		}
		return fmt.Errorf("failed to save item %s to %s: %w", item.ID, table, err)
	}
	return nil
}

// Delete удаляет элемент; отсутствие элемента не ошибка, а deleted=false
func (r *ItemRepository) Delete(ctx context.Context, c domain.Collection, id string) (bool, error) {
	table, err := tableName(c)
	if err != nil {
		return false, err
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table)), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete item %s from %s: %w", id, table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

// ListChildren возвращает активные элементы с указанным родителем (nil - корень)
func (r *ItemRepository) ListChildren(ctx context.Context, parentID *string) ([]domain.Item, error) {
	items := []domain.Item{}

	var err error
	if parentID == nil {
		err = r.db.SelectContext(ctx, &items,
			fmt.Sprintf(`SELECT %s FROM items WHERE parent_id IS NULL`, itemColumns))
	} else {
		err = r.db.SelectContext(ctx, &items,
			r.db.Rebind(fmt.Sprintf(`SELECT %s FROM items WHERE parent_id = ?`, itemColumns)), *parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	return items, nil
}

// FindByShareID ищет активный элемент по shareId
func (r *ItemRepository) FindByShareID(ctx context.Context, shareID string) (*domain.Item, error) {
	var item domain.Item
	query := r.db.Rebind(fmt.Sprintf(`SELECT %s FROM items WHERE share_id = ? ORDER BY created_at LIMIT 1`, itemColumns))
	if err := r.db.GetContext(ctx, &item, query, shareID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("no item shared as %s", shareID)
		}
		return nil, fmt.Errorf("failed to find shared item: %w", err)
	}
	return &item, nil
}

// SumActiveSize считает суммарный размер активных элементов
func (r *ItemRepository) SumActiveSize(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT CAST(COALESCE(SUM(size_bytes), 0) AS BIGINT) FROM items`); err != nil {
		return 0, fmt.Errorf("failed to calculate used space: %w", err)
	}
	return total, nil
}

// MoveToTrash переносит элемент из активной коллекции в корзину одной транзакцией
func (r *ItemRepository) MoveToTrash(ctx context.Context, id string, at time.Time) (*domain.Item, error) {
	return r.transfer(ctx, id, domain.CollectionActive, domain.CollectionTrash, func(item *domain.Item) {
		item.TrashedAt = &at
	})
}

// Restore возвращает элемент из корзины в активную коллекцию одной транзакцией
func (r *ItemRepository) Restore(ctx context.Context, id string) (*domain.Item, error) {
	return r.transfer(ctx, id, domain.CollectionTrash, domain.CollectionActive, func(item *domain.Item) {
		item.TrashedAt = nil
	})
}

func (r *ItemRepository) transfer(ctx context.Context, id string, from, to domain.Collection, mutate func(*domain.Item)) (*domain.Item, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getItem(ctx, tx, string(from), id)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, from)), id); err != nil {
		return nil, fmt.Errorf("failed to remove item %s from %s: %w", id, from, err)
	}

	mutate(item)
	if err := putItem(ctx, tx, string(to), item); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return item, nil
}

// ImportItems сохраняет набор элементов в активную коллекцию по принципу "всё или ничего".
// Копия с тем же id в корзине удаляется, чтобы коллекции не пересекались.
// shareId, занятый другим элементом в любой из коллекций, дает ConflictError.
func (r *ItemRepository) ImportItems(ctx context.Context, items []domain.Item) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	deleteTrashed := tx.Rebind(`DELETE FROM trashed_items WHERE id = ?`)
	trashedShare := tx.Rebind(`SELECT id FROM trashed_items WHERE share_id = ? AND id <> ? LIMIT 1`)
	for i := range items {
		// shareId не должен принадлежать другому элементу даже в корзине, иначе его восстановление сломается
		if items[i].ShareID != nil {
			var owner string
			err := tx.GetContext(ctx, &owner, trashedShare, *items[i].ShareID, items[i].ID)
			if err == nil {
				return domain.NewConflict("share id of item %s is already used by trashed item %s", items[i].ID, owner)
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("failed to check share id of %s: %w", items[i].ID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, deleteTrashed, items[i].ID); err != nil {
			return fmt.Errorf("failed to clear trashed copy of %s: %w", items[i].ID, err)
		}
		if err := putItem(ctx, tx, string(domain.CollectionActive), &items[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// PurgeTrash удаляет из корзины элементы, попавшие туда раньше before
func (r *ItemRepository) PurgeTrash(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM trashed_items WHERE trashed_at < ?`), before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge trash: %w", err)
	}
	return res.RowsAffected()
}

// EmptyTrash удаляет всё содержимое корзины
func (r *ItemRepository) EmptyTrash(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trashed_items`)
	if err != nil {
		return 0, fmt.Errorf("failed to empty trash: %w", err)
	}
	return res.RowsAffected()
}
