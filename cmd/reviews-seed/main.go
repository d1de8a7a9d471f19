// Command reviews-seed loads a JSON fixture of reviews into the database.
//
// The fixture maps "<type>/<id>" to the reviews of that reviewable:
//
//	{"product/sku-1": [{"review": "Solid", "ratings": {"quality": 5}, "approved": true}]}
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Clark-Hu/review-rateable/db"
	"github.com/Clark-Hu/review-rateable/internal/domain"
	"github.com/Clark-Hu/review-rateable/internal/logging"
	"github.com/Clark-Hu/review-rateable/internal/repository"
	"github.com/Clark-Hu/review-rateable/internal/review"
	"github.com/Clark-Hu/review-rateable/internal/store"
)

type fixtureEntry struct {
	Review     string             `json:"review"`
	Department string             `json:"department"`
	Recommend  bool               `json:"recommend"`
	Ratings    map[string]float64 `json:"ratings"`
	Approved   bool               `json:"approved"`
	UserID     *int64             `json:"userId"`
}

type fixtureGroup struct {
	Subject domain.Subject
	Entries []fixtureEntry
}

type seedResult struct {
	Added    int
	Approved int
}

func main() {
	_ = godotenv.Load()

	var (
		data       = flag.String("data", "reviews-seed.json", "path to fixture file")
		dbURL      = flag.String("db", os.Getenv("DB_URL"), "postgres connection string")
		department = flag.String("department", domain.DefaultDepartment, "department for entries that omit one")
		migrate    = flag.Bool("migrate", true, "apply migrations before seeding")
		logLevel   = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	logger, err := logging.New("reviews-seed", *logLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	file, err := os.ReadFile(*data)
	if err != nil {
		logger.Fatal("read fixture", zap.Error(err))
	}
	groups, err := parseFixture(file)
	if err != nil {
		logger.Fatal("parse fixture", zap.Error(err))
	}
	if *dbURL == "" {
		logger.Fatal("missing database url: set DB_URL or pass -db")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	st, err := store.New(connCtx, *dbURL, store.Options{Logger: logger})
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer st.Close()

	if *migrate {
		if err := st.Migrate(ctx, db.Migrations, "migrations"); err != nil {
			logger.Fatal("apply migrations", zap.Error(err))
		}
	}

	repo := repository.New(st)
	svc := review.NewService(repo.Reviews, review.Options{DefaultDepartment: *department, Logger: logger})

	res, err := seed(ctx, svc, groups)
	if err != nil {
		logger.Fatal("seed reviews", zap.Error(err), zap.Int("added", res.Added))
	}
	logger.Info("seed complete",
		zap.Int("reviewables", len(groups)),
		zap.Int("added", res.Added),
		zap.Int("approved", res.Approved),
	)
}

// parseFixture decodes the fixture and returns its groups ordered by key.
func parseFixture(data []byte) ([]fixtureGroup, error) {
	var payload map[string][]fixtureEntry
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	groups := make([]fixtureGroup, 0, len(keys))
	for _, key := range keys {
		subject, err := parseSubject(key)
		if err != nil {
			return nil, err
		}
		groups = append(groups, fixtureGroup{Subject: subject, Entries: payload[key]})
	}
	return groups, nil
}

func parseSubject(key string) (domain.Subject, error) {
	typ, id, ok := strings.Cut(key, "/")
	typ, id = strings.TrimSpace(typ), strings.TrimSpace(id)
	if !ok || typ == "" || id == "" {
		return domain.Subject{}, fmt.Errorf("fixture key %q: want <type>/<id>", key)
	}
	return domain.Subject{Type: typ, ID: id}, nil
}

func seed(ctx context.Context, svc *review.Service, groups []fixtureGroup) (seedResult, error) {
	var res seedResult
	for _, group := range groups {
		scope := svc.For(group.Subject)
		for i, entry := range group.Entries {
			created, err := scope.AddReview(ctx, domain.ReviewInput{
				Body:       entry.Review,
				Department: entry.Department,
				Recommend:  entry.Recommend,
				Ratings:    entry.Ratings,
			}, entry.UserID)
			if err != nil {
				return res, fmt.Errorf("%s/%s entry %d: %w", group.Subject.Type, group.Subject.ID, i, err)
			}
			res.Added++

			if !entry.Approved || created.Approved {
				continue
			}
			if _, err := scope.ApproveReview(ctx, created.ID); err != nil {
				return res, fmt.Errorf("%s/%s approve %d: %w", group.Subject.Type, group.Subject.ID, created.ID, err)
			}
			res.Approved++
		}
	}
	return res, nil
}
