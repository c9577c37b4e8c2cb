package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"gamepulse/internal/domain"
)

type stubArticleRepo struct {
	byID map[int64]domain.Article

	lastUpdate      domain.ArticleUpdate
	lastModeratedBy *string
	lastModeratedAt *time.Time
}

func newStubArticleRepo(articles ...domain.Article) *stubArticleRepo {
	byID := make(map[int64]domain.Article, len(articles))
	for _, a := range articles {
		byID[a.ID] = a
	}
	return &stubArticleRepo{byID: byID}
}

func (s *stubArticleRepo) ExistsByURL(context.Context, string) (bool, error) { return false, nil }
func (s *stubArticleRepo) InsertArticle(_ context.Context, a domain.Article) (int64, error) {
	id := int64(len(s.byID) + 1)
	a.ID = id
	s.byID[id] = a
	return id, nil
}
func (s *stubArticleRepo) GetArticle(_ context.Context, id int64) (domain.Article, error) {
	a, ok := s.byID[id]
	if !ok {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	return a, nil
}
func (s *stubArticleRepo) ListArticles(context.Context, domain.ArticleFilter) ([]domain.Article, int, error) {
	return nil, 0, nil
}
func (s *stubArticleRepo) UpdateArticle(_ context.Context, id int64, upd domain.ArticleUpdate, moderatedBy *string, moderatedAt *time.Time) (domain.Article, error) {
	a, ok := s.byID[id]
	if !ok {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	s.lastUpdate = upd
	s.lastModeratedBy = moderatedBy
	s.lastModeratedAt = moderatedAt
	if upd.Title != nil {
		a.Title = *upd.Title
	}
	if upd.Status != nil {
		a.Status = *upd.Status
	}
	if moderatedBy != nil {
		a.ModeratedBy = moderatedBy
	}
	if moderatedAt != nil {
		a.ModeratedAt = moderatedAt
	}
	s.byID[id] = a
	return a, nil
}
func (s *stubArticleRepo) PublishArticle(_ context.Context, id int64, moderator string, at time.Time) (domain.Article, error) {
	a, ok := s.byID[id]
	if !ok {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	a.Status = domain.StatusPublished
	if a.PublishedAt == nil {
		a.PublishedAt = &at
	}
	a.ModeratedBy = &moderator
	a.ModeratedAt = &at
	s.byID[id] = a
	return a, nil
}
func (s *stubArticleRepo) RejectArticle(_ context.Context, id int64, moderator, reason string, at time.Time) (domain.Article, error) {
	a, ok := s.byID[id]
	if !ok {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	a.Status = domain.StatusRejected
	a.RejectReason = reason
	a.ModeratedBy = &moderator
	a.ModeratedAt = &at
	s.byID[id] = a
	return a, nil
}
func (s *stubArticleRepo) PruneOldPending(context.Context, string, int) (int, error) { return 0, nil }

func newTestService(repo *stubArticleRepo) *Service {
	return NewService(repo, []string{"valorant", "bgmi", "cs2", "dota2"}, zerolog.Nop())
}

func TestPublishStampsModerator(t *testing.T) {
	repo := newStubArticleRepo(domain.Article{ID: 1, Status: domain.StatusPending})
	service := newTestService(repo)

	article, err := service.Publish(context.Background(), 1, "alice")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if article.Status != domain.StatusPublished {
		t.Fatalf("ожидали published, получили %s", article.Status)
	}
	if article.ModeratedBy == nil || *article.ModeratedBy != "alice" {
		t.Fatalf("ожидали штамп модератора alice")
	}
	if article.PublishedAt == nil {
		t.Fatalf("ожидали отметку публикации")
	}
}

func TestPublishKeepsFirstPublishedAt(t *testing.T) {
	firstAt := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	repo := newStubArticleRepo(domain.Article{ID: 1, Status: domain.StatusPublished, PublishedAt: &firstAt})
	service := newTestService(repo)

	article, err := service.Publish(context.Background(), 1, "bob")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !article.PublishedAt.Equal(firstAt) {
		t.Fatalf("повторная публикация не должна сдвигать published_at: %v", article.PublishedAt)
	}
}

func TestPublishNotFound(t *testing.T) {
	service := newTestService(newStubArticleRepo())

	if _, err := service.Publish(context.Background(), 99, "alice"); !errors.Is(err, domain.ErrArticleNotFound) {
		t.Fatalf("ожидали ErrArticleNotFound, получили %v", err)
	}
}

func TestPublishRejectedArticleForbidden(t *testing.T) {
	repo := newStubArticleRepo(domain.Article{ID: 1, Status: domain.StatusRejected})
	service := newTestService(repo)

	if _, err := service.Publish(context.Background(), 1, "alice"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("отклонённая статья не публикуется напрямую, получили %v", err)
	}
	if a, _ := repo.GetArticle(context.Background(), 1); a.Status != domain.StatusRejected {
		t.Fatalf("статус не должен меняться, получили %s", a.Status)
	}
}

func TestRejectPublishedArticleForbidden(t *testing.T) {
	repo := newStubArticleRepo(domain.Article{ID: 1, Status: domain.StatusPublished})
	service := newTestService(repo)

	if _, err := service.Reject(context.Background(), 1, "alice", "late catch"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("опубликованная статья не отклоняется напрямую, получили %v", err)
	}
}

func TestRejectAgainUpdatesReason(t *testing.T) {
	repo := newStubArticleRepo(domain.Article{ID: 1, Status: domain.StatusRejected, RejectReason: "old"})
	service := newTestService(repo)

	article, err := service.Reject(context.Background(), 1, "alice", "better reason")
	if err != nil {
		t.Fatalf("повторный отказ уточняет причину: %v", err)
	}
	if article.RejectReason != "better reason" {
		t.Fatalf("ожидали обновлённую причину, получили %q", article.RejectReason)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	repo := newStubArticleRepo(domain.Article{ID: 1, Status: domain.StatusPending})
	service := newTestService(repo)

	if _, err := service.Reject(context.Background(), 1, "alice", "   "); !errors.Is(err, ErrValidation) {
		t.Fatalf("пустая причина должна отклоняться, получили %v", err)
	}

	article, err := service.Reject(context.Background(), 1, "alice", "duplicate coverage")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if article.Status != domain.StatusRejected || article.RejectReason != "duplicate coverage" {
		t.Fatalf("ожидали rejected с причиной, получили %s/%q", article.Status, article.RejectReason)
	}
}

func TestUpdateTextDoesNotStampModerator(t *testing.T) {
	repo := newStubArticleRepo(domain.Article{ID: 1, Status: domain.StatusPending})
	service := newTestService(repo)

	title := "Новый заголовок"
	_, err := service.Update(context.Background(), 1, "alice", domain.ArticleUpdate{Title: &title})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if repo.lastModeratedBy != nil {
		t.Fatalf("правка текста не должна штамповать модератора")
	}
}

func TestUpdateStatusStampsModerator(t *testing.T) {
	repo := newStubArticleRepo(domain.Article{ID: 1, Status: domain.StatusPending})
	service := newTestService(repo)

	status := domain.StatusApproved
	_, err := service.Update(context.Background(), 1, "alice", domain.ArticleUpdate{Status: &status})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if repo.lastModeratedBy == nil || *repo.lastModeratedBy != "alice" {
		t.Fatalf("смена статуса должна штамповать модератора")
	}
}

func TestUpdateRejectStatusRequiresReason(t *testing.T) {
	repo := newStubArticleRepo(domain.Article{ID: 1, Status: domain.StatusPending})
	service := newTestService(repo)

	status := domain.StatusRejected
	if _, err := service.Update(context.Background(), 1, "alice", domain.ArticleUpdate{Status: &status}); !errors.Is(err, ErrValidation) {
		t.Fatalf("отклонение без причины должно быть ошибкой, получили %v", err)
	}
}

func TestUpdateInvalidEnum(t *testing.T) {
	repo := newStubArticleRepo(domain.Article{ID: 1})
	service := newTestService(repo)

	category := domain.Category("breaking")
	if _, err := service.Update(context.Background(), 1, "alice", domain.ArticleUpdate{Category: &category}); !errors.Is(err, ErrValidation) {
		t.Fatalf("неизвестная рубрика должна отклоняться, получили %v", err)
	}
}

func TestCreateManual(t *testing.T) {
	repo := newStubArticleRepo()
	service := newTestService(repo)

	article, err := service.CreateManual(context.Background(), "alice", ManualArticle{
		Title:    "Анонс турнира",
		GameSlug: "valorant",
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if article.SourceID != nil {
		t.Fatalf("ручная статья не должна иметь источника")
	}
	if article.Status != domain.StatusApproved {
		t.Fatalf("статус по умолчанию approved, получили %s", article.Status)
	}
	if article.Category != domain.CategoryGeneral || article.Region != domain.RegionGlobal {
		t.Fatalf("пустые рубрика и регион получают значения по умолчанию")
	}
	if article.ModeratedBy == nil || *article.ModeratedBy != "alice" {
		t.Fatalf("ручная статья штампуется создателем")
	}
}

func TestCreateManualValidation(t *testing.T) {
	service := newTestService(newStubArticleRepo())

	if _, err := service.CreateManual(context.Background(), "alice", ManualArticle{GameSlug: "valorant"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("пустой заголовок должен отклоняться, получили %v", err)
	}
	if _, err := service.CreateManual(context.Background(), "alice", ManualArticle{Title: "t", GameSlug: "fortnite"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("неизвестная игра должна отклоняться, получили %v", err)
	}
}

func TestCreateManualPublishedGetsPublishedAt(t *testing.T) {
	service := newTestService(newStubArticleRepo())

	article, err := service.CreateManual(context.Background(), "alice", ManualArticle{
		Title:    "Срочная новость",
		GameSlug: "bgmi",
		Status:   domain.StatusPublished,
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if article.PublishedAt == nil {
		t.Fatalf("опубликованная при создании статья получает published_at")
	}
}
