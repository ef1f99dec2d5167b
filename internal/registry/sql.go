package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/annel0/radzone/internal/region"
	"github.com/annel0/radzone/internal/vec"
)

// Dialect различия SQL между SQLite и MariaDB/MySQL
type Dialect struct {
	Driver      string
	CreateTable string
	Upsert      string
}

// SQLiteDialect диалект modernc.org/sqlite
var SQLiteDialect = Dialect{
	Driver: "sqlite",
	CreateTable: `
		CREATE TABLE IF NOT EXISTS regions (
			world_id   TEXT    NOT NULL,
			name       TEXT    NOT NULL,
			min_y      INTEGER NOT NULL,
			max_y      INTEGER NOT NULL,
			min_x      INTEGER NOT NULL,
			max_x      INTEGER NOT NULL,
			min_z      INTEGER NOT NULL,
			max_z      INTEGER NOT NULL,
			data       TEXT    NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (world_id, name)
		)`,
	Upsert: `
		INSERT INTO regions (world_id, name, min_y, max_y, min_x, max_x, min_z, max_z, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(world_id, name) DO UPDATE SET
			min_y = excluded.min_y,
			max_y = excluded.max_y,
			min_x = excluded.min_x,
			max_x = excluded.max_x,
			min_z = excluded.min_z,
			max_z = excluded.max_z,
			data = excluded.data,
			updated_at = excluded.updated_at`,
}

// MariaDialect диалект github.com/go-sql-driver/mysql
var MariaDialect = Dialect{
	Driver: "mysql",
	CreateTable: `
		CREATE TABLE IF NOT EXISTS regions (
			world_id   VARCHAR(128) NOT NULL,
			name       VARCHAR(128) NOT NULL,
			min_y      INT          NOT NULL,
			max_y      INT          NOT NULL,
			min_x      INT          NOT NULL,
			max_x      INT          NOT NULL,
			min_z      INT          NOT NULL,
			max_z      INT          NOT NULL,
			data       LONGTEXT     NOT NULL,
			updated_at TIMESTAMP    NOT NULL,
			PRIMARY KEY (world_id, name),
			INDEX idx_regions_bbox (world_id, min_x, max_x, min_z, max_z)
		) ENGINE=InnoDB`,
	Upsert: `
		INSERT INTO regions (world_id, name, min_y, max_y, min_x, max_x, min_z, max_z, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			min_y = VALUES(min_y),
			max_y = VALUES(max_y),
			min_x = VALUES(min_x),
			max_x = VALUES(max_x),
			min_z = VALUES(min_z),
			max_z = VALUES(max_z),
			data = VALUES(data),
			updated_at = VALUES(updated_at)`,
}

// SQLRegistry реализует Registry поверх database/sql.
// Определение хранится JSON; габариты вынесены в колонки для RegionsAt.
type SQLRegistry struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLiteRegistry открывает файл SQLite, создавая каталог и таблицу
func NewSQLiteRegistry(path string) (*SQLRegistry, error) {
	if path == "" {
		return nil, fmt.Errorf("пустой путь к базе SQLite")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open(SQLiteDialect.Driver, path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть SQLite: %w", err)
	}
	// Один писатель: SQLite сериализует запись на уровне файла
	db.SetMaxOpenConns(1)

	for _, p := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	return newSQLRegistry(db, SQLiteDialect)
}

// NewMariaRegistry подключается к MariaDB/MySQL.
// dsn: user:pass@tcp(host:port)/dbname?parseTime=true
func NewMariaRegistry(dsn string) (*SQLRegistry, error) {
	db, err := sql.Open(MariaDialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	// Проверяем соединение
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	return newSQLRegistry(db, MariaDialect)
}

func newSQLRegistry(db *sql.DB, dialect Dialect) (*SQLRegistry, error) {
	r := &SQLRegistry{db: db, dialect: dialect}
	if _, err := db.Exec(dialect.CreateTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка создания таблицы regions: %w", err)
	}
	return r, nil
}

// AddPolygonalRegion сохраняет определение, заменяя существующее
func (r *SQLRegistry) AddPolygonalRegion(ctx context.Context, def region.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("ошибка сериализации региона: %w", err)
	}
	box := boundsOf(def)

	_, err = r.db.ExecContext(ctx, r.dialect.Upsert,
		def.WorldID, def.Name, def.MinY, def.MaxY,
		box.MinX, box.MaxX, box.MinZ, box.MaxZ,
		string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения региона %s: %w", def.Key(), err)
	}
	return nil
}

func (r *SQLRegistry) Get(ctx context.Context, worldID, name string) (region.Definition, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM regions WHERE world_id = ? AND name = ?`, worldID, name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return region.Definition{}, notFound(worldID, name)
	}
	if err != nil {
		return region.Definition{}, fmt.Errorf("ошибка загрузки региона %s/%s: %w", worldID, name, err)
	}
	return decodeDefinition(data)
}

func (r *SQLRegistry) List(ctx context.Context, worldID string) ([]region.Definition, error) {
	return r.query(ctx, `SELECT data FROM regions WHERE world_id = ? ORDER BY name`, worldID)
}

func (r *SQLRegistry) Remove(ctx context.Context, worldID, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM regions WHERE world_id = ? AND name = ?`, worldID, name)
	if err != nil {
		return fmt.Errorf("ошибка удаления региона %s/%s: %w", worldID, name, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества затронутых строк: %w", err)
	}
	if rowsAffected == 0 {
		return notFound(worldID, name)
	}
	return nil
}

// RegionsAt отбирает кандидатов по габаритам в БД, точную проверку делает Contains
func (r *SQLRegistry) RegionsAt(ctx context.Context, worldID string, pos vec.Vec3) ([]region.Definition, error) {
	defs, err := r.query(ctx, `
		SELECT data FROM regions
		WHERE world_id = ?
			AND min_y <= ? AND max_y >= ?
			AND min_x <= ? AND max_x >= ?
			AND min_z <= ? AND max_z >= ?
		ORDER BY name`,
		worldID, pos.Y, pos.Y, pos.X, pos.X, pos.Z, pos.Z,
	)
	if err != nil {
		return nil, err
	}
	return filterAt(defs, pos), nil
}

func (r *SQLRegistry) query(ctx context.Context, query string, args ...interface{}) ([]region.Definition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса регионов: %w", err)
	}
	defer rows.Close()

	defs := make([]region.Definition, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		def, err := decodeDefinition(data)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return defs, nil
}

func decodeDefinition(data string) (region.Definition, error) {
	var def region.Definition
	if err := json.Unmarshal([]byte(data), &def); err != nil {
		return region.Definition{}, fmt.Errorf("ошибка десериализации региона: %w", err)
	}
	return def, nil
}

// Close закрывает соединение с базой данных.
func (r *SQLRegistry) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
