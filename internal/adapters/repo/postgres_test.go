package repo

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"freelancer-feedback/internal/domain"
)

// newTestStore подключается к FEEDBACK_TEST_PG_DSN и изолирует тест в отдельной схеме.
func newTestStore(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("FEEDBACK_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("FEEDBACK_TEST_PG_DSN не задан")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	schema := "feedback_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	admin, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("подключение: %v", err)
	}
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		admin.Close()
		t.Fatalf("создание схемы: %v", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("разбор DSN: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("подключение к схеме: %v", err)
	}
	t.Cleanup(func() {
		pool.Close()
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	store := NewPostgres(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return store
}

func input(name, url string, r domain.Ratings, comments *string) domain.FeedbackInput {
	return domain.FeedbackInput{
		Email:          "client@example.com",
		FreelancerName: name,
		ProfileURL:     url,
		Ratings:        r,
		Comments:       comments,
	}
}

func strPtr(s string) *string { return &s }

func TestEnsureSchemaIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("повторный EnsureSchema: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.EnsureSchema(ctx)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("параллельный EnsureSchema: %v", err)
		}
	}

	var tables int
	if err := store.pool.QueryRow(ctx, `SELECT count(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = 'feedback'`).Scan(&tables); err != nil {
		t.Fatalf("проверка таблицы: %v", err)
	}
	if tables != 1 {
		t.Fatalf("ожидали одну таблицу, получили %d", tables)
	}
}

func TestInsertAndListDetailsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := input("John Smith", "https://www.upwork.com/freelancers/johnsmith",
		domain.Ratings{Communication: 5, Quality: 4, Value: 5, Timeliness: 4, Expertise: 5, Overall: 5},
		strPtr("Great work"))
	second := input("Sarah Johnson", "https://www.upwork.com/freelancers/sarahjohnson",
		domain.Ratings{Communication: 1, Quality: 1, Value: 1, Timeliness: 1, Expertise: 1, Overall: 1}, nil)

	id1, err := store.Insert(ctx, first)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	id2, err := store.Insert(ctx, second)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id2 <= id1 {
		t.Fatalf("ожидали возрастающие id: %d, %d", id1, id2)
	}

	rows, err := store.ListDetails(ctx)
	if err != nil {
		t.Fatalf("ListDetails: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ожидали 2 строки, получили %d", len(rows))
	}
	newest := rows[0]
	if newest.ID != id2 {
		t.Fatalf("ожидали новейшую запись первой")
	}
	if newest.Comments != nil {
		t.Fatalf("ожидали NULL комментарий, получили %q", *newest.Comments)
	}
	oldest := rows[1]
	if oldest.Email != first.Email || oldest.FreelancerName != first.FreelancerName ||
		oldest.ProfileURL != first.ProfileURL || oldest.Ratings != first.Ratings {
		t.Fatalf("поля не совпали: %+v", oldest)
	}
	if oldest.Comments == nil || *oldest.Comments != "Great work" {
		t.Fatalf("комментарий не совпал: %v", oldest.Comments)
	}
	if oldest.CreatedAt.IsZero() {
		t.Fatalf("ожидали created_at от БД")
	}
}

func TestInsertStoresEmptyCommentsAsNull(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id, err := store.Insert(ctx, input("A", "https://a.example/p",
		domain.Ratings{Communication: 3, Quality: 3, Value: 3, Timeliness: 3, Expertise: 3, Overall: 3}, strPtr("")))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	var isNull bool
	if err := store.pool.QueryRow(ctx, `SELECT comments IS NULL FROM feedback WHERE id = $1`, id).Scan(&isNull); err != nil {
		t.Fatalf("select: %v", err)
	}
	if !isNull {
		t.Fatalf("ожидали NULL вместо пустой строки")
	}
}

func TestInsertRejectsOutOfRangeRating(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Insert(context.Background(), input("A", "https://a.example/p",
		domain.Ratings{Communication: 6, Quality: 3, Value: 3, Timeliness: 3, Expertise: 3, Overall: 3}, nil))
	if err == nil {
		t.Fatalf("ожидали нарушение CHECK")
	}
	if _, ok := err.(*domain.PersistenceError); !ok {
		t.Fatalf("ожидали PersistenceError, получили %T", err)
	}
}

func TestListSummaryAggregates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	url := "https://www.upwork.com/freelancers/johnsmith"

	// суммы 27 и 21: (27+21)/12 = 4.00
	mustInsert(t, store, input("John Smith", url, domain.Ratings{Communication: 5, Quality: 5, Value: 4, Timeliness: 5, Expertise: 4, Overall: 4}, nil))
	mustInsert(t, store, input("John Smith", url, domain.Ratings{Communication: 3, Quality: 3, Value: 4, Timeliness: 3, Expertise: 4, Overall: 4}, nil))
	// то же имя, другой профиль — отдельная строка
	mustInsert(t, store, input("John Smith", "https://www.upwork.com/freelancers/johnsmith2", domain.Ratings{Communication: 5, Quality: 5, Value: 5, Timeliness: 5, Expertise: 5, Overall: 4}, nil))

	rows, err := store.ListSummary(ctx)
	if err != nil {
		t.Fatalf("ListSummary: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ожидали 2 строки, получили %d: %+v", len(rows), rows)
	}
	// 29/6 = 4.833 -> 4.83, выше 4.00
	if rows[0].ProfileURL != "https://www.upwork.com/freelancers/johnsmith2" || rows[0].AvgRating != 4.83 {
		t.Fatalf("неверная первая строка: %+v", rows[0])
	}
	got := rows[1]
	if got.ProfileURL != url || got.AvgRating != 4.00 || got.HighestRating != 5 || got.LowestRating != 3 || got.FeedbackCount != 2 {
		t.Fatalf("неверный агрегат: %+v", got)
	}
}

func TestListSummaryRoundsHalfUp(t *testing.T) {
	store := newTestStore(t)
	url := "https://a.example/half"
	mustInsert(t, store, input("Half", url, domain.Ratings{Communication: 5, Quality: 4, Value: 4, Timeliness: 4, Expertise: 4, Overall: 4}, nil))
	mustInsert(t, store, input("Half", url, domain.Ratings{Communication: 4, Quality: 4, Value: 4, Timeliness: 4, Expertise: 4, Overall: 4}, nil))
	mustInsert(t, store, input("Half", url, domain.Ratings{Communication: 4, Quality: 4, Value: 4, Timeliness: 4, Expertise: 4, Overall: 4}, nil))
	mustInsert(t, store, input("Half", url, domain.Ratings{Communication: 4, Quality: 4, Value: 4, Timeliness: 4, Expertise: 4, Overall: 4}, nil))
	// 97/24 = 4.0416 -> 4.04
	rows, err := store.ListSummary(context.Background())
	if err != nil {
		t.Fatalf("ListSummary: %v", err)
	}
	if len(rows) != 1 || rows[0].AvgRating != 4.04 {
		t.Fatalf("ожидали 4.04, получили %+v", rows)
	}

	store2 := newTestStore(t)
	// 99/24 = 4.125 -> 4.13
	mustInsert(t, store2, input("Up", url, domain.Ratings{Communication: 5, Quality: 4, Value: 4, Timeliness: 4, Expertise: 4, Overall: 4}, nil))
	mustInsert(t, store2, input("Up", url, domain.Ratings{Communication: 5, Quality: 4, Value: 4, Timeliness: 4, Expertise: 4, Overall: 4}, nil))
	mustInsert(t, store2, input("Up", url, domain.Ratings{Communication: 5, Quality: 4, Value: 4, Timeliness: 4, Expertise: 4, Overall: 4}, nil))
	mustInsert(t, store2, input("Up", url, domain.Ratings{Communication: 4, Quality: 4, Value: 4, Timeliness: 4, Expertise: 4, Overall: 4}, nil))
	rows, err = store2.ListSummary(context.Background())
	if err != nil {
		t.Fatalf("ListSummary: %v", err)
	}
	if len(rows) != 1 || rows[0].AvgRating != 4.13 {
		t.Fatalf("ожидали 4.13, получили %+v", rows)
	}
}

func mustInsert(t *testing.T, store *Postgres, in domain.FeedbackInput) {
	t.Helper()
	if _, err := store.Insert(context.Background(), in); err != nil {
		t.Fatalf("Insert: %v", err)
	}
}
