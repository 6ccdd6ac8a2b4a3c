package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
	"github.com/yourusername/carmarket-api/internal/domain/repository"
	apperrors "github.com/yourusername/carmarket-api/internal/pkg/errors"
	"github.com/yourusername/carmarket-api/internal/pkg/phone"
	"github.com/yourusername/carmarket-api/pkg/auth"
)

// ApplicationTTL ограничивает срок жизни заявки целиком (не отдельного кода)
const ApplicationTTL = 24 * time.Hour

var slugCleanRe = regexp.MustCompile(`[^a-z0-9]+`)

// DealerService управляет заявками дилеров и их материализацией
type DealerService struct {
	appRepo      repository.DealerApplicationRepository
	dealerRepo   repository.DealerRepository
	userRepo     repository.UserRepository
	verification *VerificationService
}

// NewDealerService создает новый сервис дилеров
func NewDealerService(
	appRepo repository.DealerApplicationRepository,
	dealerRepo repository.DealerRepository,
	userRepo repository.UserRepository,
	verification *VerificationService,
) *DealerService {
	return &DealerService{
		appRepo:      appRepo,
		dealerRepo:   dealerRepo,
		userRepo:     userRepo,
		verification: verification,
	}
}

// ApplicationInput — данные формы заявки дилера
type ApplicationInput struct {
	CompanyName string
	Email       string
	Phone       string
	City        string
	Address     string
}

// Apply создает заявку дилера и отправляет OTP на указанный номер.
// Повторная подача с того же номера продолжает активную заявку вместо
// создания новой.
func (s *DealerService) Apply(ctx context.Context, input ApplicationInput) (*entity.DealerApplication, *SendResult, error) {
	canonical := phone.FormatWhatsApp(input.Phone)
	if !phone.ValidateWhatsApp(canonical) {
		return nil, nil, ErrInvalidPhone
	}
	if strings.TrimSpace(input.CompanyName) == "" {
		return nil, nil, fmt.Errorf("%w: company name is required", apperrors.ErrValidation)
	}

	now := time.Now()

	// Уже есть дилер с этим номером — вторая заявка не нужна
	if user, err := s.userRepo.GetByPhone(canonical); err == nil && user != nil {
		if _, err := s.dealerRepo.GetByOwnerUserID(user.ID); err == nil {
			return nil, nil, fmt.Errorf("%w: dealer already registered for this phone", apperrors.ErrConflict)
		}
	}

	app, err := s.appRepo.GetActiveByPhone(canonical, now)
	if err != nil || app == nil {
		app = &entity.DealerApplication{
			CompanyName: strings.TrimSpace(input.CompanyName),
			Slug:        Slugify(input.CompanyName),
			Phone:       canonical,
			Email:       input.Email,
			City:        input.City,
			Address:     input.Address,
			ExpiresAt:   now.Add(ApplicationTTL),
		}
		if err := s.appRepo.Create(app); err != nil {
			return nil, nil, err
		}
		log.Printf("[DealerService] Создана заявка дилера %q (ID=%d)", app.CompanyName, app.ID)
	}

	result, err := s.verification.Send(ctx, NewApplicationOTPAccessor(s.appRepo, app.ID), canonical)
	if err != nil {
		return nil, nil, err
	}
	return app, result, nil
}

// VerifyApplication подтверждает заявку по коду и материализует дилера:
// помечает заявку подтвержденной, находит или создает пользователя по
// номеру телефона, повышает его роль и создает запись дилера с уникальным
// slug. Заявка после подтверждения не удаляется — повторный verify
// не создаст второго дилера.
func (s *DealerService) VerifyApplication(ctx context.Context, rawPhone, code string) (*entity.Dealer, error) {
	canonical := phone.FormatWhatsApp(rawPhone)
	if !phone.ValidateWhatsApp(canonical) {
		return nil, ErrInvalidPhone
	}

	now := time.Now()
	app, err := s.appRepo.GetActiveByPhone(canonical, now)
	if err != nil || app == nil {
		return nil, apperrors.ErrNotFound
	}
	if app.IsExpired(now) {
		return nil, ErrApplicationExpired
	}

	var dealer *entity.Dealer
	complete := func() error {
		if err := s.appRepo.MarkVerified(app.ID); err != nil {
			return err
		}
		d, err := s.materializeDealer(app, now)
		if err != nil {
			return err
		}
		dealer = d
		return nil
	}

	acc := NewApplicationOTPAccessor(s.appRepo, app.ID)
	if err := s.verification.Verify(ctx, acc, code, nil, complete); err != nil {
		return nil, err
	}

	log.Printf("[DealerService] Заявка %d подтверждена, дилер %q (ID=%d)", app.ID, dealer.CompanyName, dealer.ID)
	return dealer, nil
}

// materializeDealer превращает подтвержденную заявку в аккаунт дилера
func (s *DealerService) materializeDealer(app *entity.DealerApplication, now time.Time) (*entity.Dealer, error) {
	user, err := s.userRepo.GetByPhone(app.Phone)
	if err != nil || user == nil {
		// Пользователя с этим номером нет: создаем активный аккаунт
		// со случайным паролем, вход — по OTP
		randomPassword, err := auth.GenerateRefreshToken()
		if err != nil {
			return nil, err
		}
		user = &entity.User{
			Username:        Slugify(app.CompanyName),
			Email:           app.Email,
			Password:        randomPassword,
			Phone:           app.Phone,
			PhoneVerifiedAt: &now,
			City:            app.City,
			Active:          true,
			Role:            entity.RoleDealer,
		}
		if err := s.userRepo.Create(user); err != nil {
			return nil, err
		}
	} else if user.Role == entity.RoleUser {
		if err := s.userRepo.UpdateProfile(user.ID, map[string]interface{}{"role": entity.RoleDealer}); err != nil {
			return nil, err
		}
	}

	slug, err := s.uniqueSlug(app.Slug)
	if err != nil {
		return nil, err
	}

	dealer := &entity.Dealer{
		OwnerUserID: user.ID,
		CompanyName: app.CompanyName,
		Slug:        slug,
		Phone:       app.Phone,
		City:        app.City,
		Address:     app.Address,
		Verified:    true,
	}
	if err := s.dealerRepo.Create(dealer); err != nil {
		return nil, err
	}
	return dealer, nil
}

// uniqueSlug добавляет числовой суффикс, если slug уже занят
func (s *DealerService) uniqueSlug(base string) (string, error) {
	if base == "" {
		base = "dealer"
	}
	if _, err := s.dealerRepo.GetBySlug(base); err != nil {
		return base, nil
	}
	for i := 2; i <= 50; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if _, err := s.dealerRepo.GetBySlug(candidate); err != nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate unique slug for %q", apperrors.ErrConflict, base)
}

// GetByID возвращает дилера по ID
func (s *DealerService) GetByID(id uint) (*entity.Dealer, error) {
	return s.dealerRepo.GetByID(id)
}

// GetByOwner возвращает дилера по владельцу
func (s *DealerService) GetByOwner(userID uint) (*entity.Dealer, error) {
	dealer, err := s.dealerRepo.GetByOwnerUserID(userID)
	if err != nil {
		return nil, ErrNotDealer
	}
	return dealer, nil
}

// ResolveSlug находит дилера по slug из URL. Сначала точное совпадение,
// затем нечеткое: кандидаты по префиксу сравниваются в нормализованной
// форме (регистр и разделители игнорируются). Ровно один нормализованный
// матч — возвращаем его, иначе NotFound.
func (s *DealerService) ResolveSlug(rawSlug string) (*entity.Dealer, error) {
	slug := strings.ToLower(strings.TrimSpace(rawSlug))
	if slug == "" {
		return nil, apperrors.ErrNotFound
	}

	if dealer, err := s.dealerRepo.GetBySlug(slug); err == nil {
		return dealer, nil
	}

	normalized := normalizeSlug(slug)
	if normalized == "" {
		return nil, apperrors.ErrNotFound
	}

	// Префикс для выборки кандидатов: первые символы нормализованной формы
	prefix := normalized
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	candidates, err := s.dealerRepo.FindSlugCandidates(prefix, 20)
	if err != nil {
		return nil, err
	}

	var match *entity.Dealer
	for i := range candidates {
		if normalizeSlug(candidates[i].Slug) == normalized {
			if match != nil {
				// Неоднозначное совпадение трактуем как отсутствие
				return nil, apperrors.ErrNotFound
			}
			match = &candidates[i]
		}
	}
	if match == nil {
		return nil, apperrors.ErrNotFound
	}
	return match, nil
}

// List возвращает страницу дилеров
func (s *DealerService) List(limit, offset int) ([]entity.Dealer, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.dealerRepo.List(limit, offset)
}

// ListApplications возвращает страницу заявок (админ)
func (s *DealerService) ListApplications(limit, offset int) ([]entity.DealerApplication, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.appRepo.List(limit, offset)
}

// UpdateProfile обновляет публичный профиль дилера (только владелец)
func (s *DealerService) UpdateProfile(userID uint, city, address, about string) (*entity.Dealer, error) {
	dealer, err := s.dealerRepo.GetByOwnerUserID(userID)
	if err != nil {
		return nil, ErrNotDealer
	}
	dealer.City = city
	dealer.Address = address
	dealer.About = about
	if err := s.dealerRepo.Update(dealer); err != nil {
		return nil, err
	}
	return dealer, nil
}

// Slugify приводит название компании к URL-дружелюбному виду
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugCleanRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 120 {
		slug = slug[:120]
	}
	return slug
}

// normalizeSlug убирает все разделители для нечеткого сравнения
func normalizeSlug(slug string) string {
	return slugCleanRe.ReplaceAllString(strings.ToLower(slug), "")
}
