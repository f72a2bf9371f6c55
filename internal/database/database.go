package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"moul.io/zapgorm2"

	"github.com/bigredeye/cichain/internal/graph"
	"github.com/bigredeye/cichain/internal/models"
	"github.com/bigredeye/cichain/internal/projects"
)

type DataBase struct {
	*gorm.DB
}

type MissingSchema struct {
	nested error
}

func (e *MissingSchema) Error() string {
	return fmt.Sprintf("database schema is missing, enable migrations: %s", e.nested.Error())
}

func (e *MissingSchema) Unwrap() error {
	return e.nested
}

func IsMissingSchema(err error) bool {
	missingSchema := &MissingSchema{}
	return errors.As(err, &missingSchema)
}

// https://www.postgresql.org/docs/current/errcodes-appendix.html
func isUndefinedTable(err error) bool {
	var perr *pgconn.PgError
	if errors.As(err, &perr) {
		return perr.Code == "42P01"
	}
	return false
}

func classify(err error) error {
	if isUndefinedTable(err) {
		return &MissingSchema{err}
	}
	return err
}

func DSN(host string, port uint16, user, pass, name string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", host, port, user, pass, name)
}

func OpenDataBase(logger *zap.Logger, dsn string, migrate bool) (*DataBase, error) {
	zapLogger := zapgorm2.New(logger.Named("gorm"))
	zapLogger.SetAsDefault()
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: zapLogger,
	})
	if err != nil {
		return nil, err
	}

	if migrate {
		err = db.AutoMigrate(&Build{}, &Dependency{}, &ProjectParameter{})
		if err != nil {
			return nil, err
		}
	}

	return &DataBase{db}, nil
}

func (db *DataBase) Build(ctx context.Context, id int64) (*models.Build, error) {
	var build Build
	err := db.WithContext(ctx).First(&build, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("build %d: %w", id, graph.ErrBuildNotFound)
		}
		return nil, classify(err)
	}
	return build.model(), nil
}

func (db *DataBase) Dependencies(ctx context.Context, id int64) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Model(&Dependency{}).
		Where("build_id = ?", id).
		Order("depends_on_id").
		Pluck("depends_on_id", &ids).Error
	if err != nil {
		return nil, classify(err)
	}
	return ids, nil
}

func (db *DataBase) Dependents(ctx context.Context, id int64) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Model(&Dependency{}).
		Where("depends_on_id = ?", id).
		Order("build_id").
		Pluck("build_id", &ids).Error
	if err != nil {
		return nil, classify(err)
	}
	return ids, nil
}

func (db *DataBase) ProjectParameters(ctx context.Context, projectID string) (map[string]string, error) {
	params, err := db.listParameters(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("project %s: %w", projectID, projects.ErrProjectNotFound)
	}
	return params, nil
}

func (db *DataBase) RootParameters(ctx context.Context) (map[string]string, error) {
	return db.listParameters(ctx, RootProjectID)
}

func (db *DataBase) listParameters(ctx context.Context, projectID string) (map[string]string, error) {
	var records []ProjectParameter
	err := db.WithContext(ctx).Find(&records, "project_id = ?", projectID).Error
	if err != nil {
		return nil, classify(err)
	}
	params := make(map[string]string, len(records))
	for _, record := range records {
		params[record.Name] = record.Value
	}
	return params, nil
}

// SaveSnapshot upserts the builds and edges of snapshot.
func (db *DataBase) SaveSnapshot(ctx context.Context, snapshot *graph.Snapshot) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range snapshot.Builds {
			build := &snapshot.Builds[i]
			err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(newBuildRecord(build.Model())).Error
			if err != nil {
				return classify(err)
			}

			for _, dependency := range build.Dependencies {
				err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&Dependency{
					BuildID:     build.ID,
					DependsOnID: dependency,
				}).Error
				if err != nil {
					return classify(err)
				}
			}
		}
		return nil
	})
}

func (db *DataBase) SetProjectParameter(ctx context.Context, projectID, name, value string) error {
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&ProjectParameter{
		ProjectID: projectID,
		Name:      name,
		Value:     value,
	}).Error
	return classify(err)
}

var (
	_ graph.Graph     = (*DataBase)(nil)
	_ projects.Source = (*DataBase)(nil)
)
