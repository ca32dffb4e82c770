package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/focusdiff/focusdiff/app/models"
	"github.com/focusdiff/focusdiff/app/repository"
	"github.com/focusdiff/focusdiff/internal/pkg/ledger"
)

// ErrNoSourceImage is returned when Animate is invoked without a prior
// successful image generation to animate. Rejected locally, no external call.
var ErrNoSourceImage = errors.New("generation: no source image to animate")

// CreditLedger is the slice of the ledger service the orchestrator needs.
type CreditLedger interface {
	Balance(ctx context.Context, userID uint) (int, error)
	Adjust(ctx context.Context, userID uint, delta int) (int, error)
}

// Archiver copies a finished generation's artifact into long-term storage.
// Best effort: the orchestrator fires it asynchronously and never lets an
// archive failure reach the user or the ledger.
type Archiver interface {
	Archive(gen *models.Generation)
}

// Service drives the two costed operations against the external generation
// API. Both follow the same protocol: gate on balance, call out, and debit
// only after external success. A failed generation costs nothing.
type Service struct {
	client   Client
	credits  CreditLedger
	gens     repository.GenerationRepository
	progress *ProgressStore
	archiver Archiver
	validate *validator.Validate
}

// NewService creates a generation orchestrator.
func NewService(client Client, credits CreditLedger, gens repository.GenerationRepository, progress *ProgressStore, archiver Archiver) *Service {
	return &Service{
		client:   client,
		credits:  credits,
		gens:     gens,
		progress: progress,
		archiver: archiver,
		validate: validator.New(),
	}
}

// Progress exposes the per-user progress store for the polling endpoint.
func (s *Service) Progress() *ProgressStore {
	return s.progress
}

// Generate runs one image generation for the user. The balance check and the
// debit are separate steps around the external call; two sessions can both
// pass the check before either debit lands (accepted race, clamped at zero).
func (s *Service) Generate(ctx context.Context, userID uint, req GenerateRequest) (*models.Generation, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, err
	}
	if req.ImageSize == "" {
		req.ImageSize = DefaultImageSize
	}
	if req.Steps == 0 {
		req.Steps = DefaultSteps
	}

	balance, err := s.credits.Balance(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if balance < CostImage {
		return nil, balance, ledger.ErrInsufficientCredits
	}

	s.progress.Begin(userID)
	defer s.progress.End(userID)

	out, err := s.client.GenerateImage(ctx, ImageInput{
		Prompt:              req.Prompt,
		ImageSize:           req.ImageSize,
		NumInferenceSteps:   req.Steps,
		SyncMode:            true,
		NumImages:           1,
		EnableSafetyChecker: false,
	}, func(line string) {
		s.progress.Append(userID, line)
	})
	if err != nil {
		return nil, balance, fmt.Errorf("image generation failed: %w", err)
	}

	gen := &models.Generation{
		UserID:    userID,
		Kind:      models.GenerationKindImage,
		Prompt:    req.Prompt,
		ImageSize: req.ImageSize,
		Steps:     req.Steps,
		ResultURL: out.Images[0].URL,
		Cost:      CostImage,
	}
	if err := s.gens.Create(gen); err != nil {
		// The image exists and will be charged for; history is secondary.
		log.Errorf("[Generation] failed to record image generation for user_id=%d: %v", userID, err)
	}

	newBalance, err := s.credits.Adjust(ctx, userID, -CostImage)
	if err != nil {
		log.Errorf("[Generation] debit after successful image failed for user_id=%d: %v", userID, err)
		newBalance = balance
	}

	if s.archiver != nil {
		go s.archiver.Archive(gen)
	}
	return gen, newBalance, nil
}

// Animate runs one image-to-video generation. It requires a prior
// successful Generate result; without one it is rejected locally.
func (s *Service) Animate(ctx context.Context, userID uint, req AnimateRequest) (*models.Generation, int, error) {
	if req.Movement == 0 {
		req.Movement = DefaultMovement
	}
	if req.Similarity == 0 {
		req.Similarity = DefaultSimilarity
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, err
	}

	balance, err := s.credits.Balance(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if balance < CostVideo {
		return nil, balance, ledger.ErrInsufficientCredits
	}

	sourceURL := req.ImageURL
	sourcePrompt := ""
	source, err := s.gens.LatestImageByUserID(userID)
	if err == nil {
		if sourceURL == "" {
			sourceURL = source.ResultURL
		}
		sourcePrompt = source.Prompt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, balance, err
	}
	if sourceURL == "" {
		return nil, balance, ErrNoSourceImage
	}

	s.progress.Begin(userID)
	defer s.progress.End(userID)

	out, err := s.client.GenerateVideo(ctx, VideoInput{
		ImageURL:            sourceURL,
		MotionBucketID:      req.Movement,
		CondAug:             req.Similarity,
		EnableSafetyChecker: false,
	}, func(line string) {
		s.progress.Append(userID, line)
	})
	if err != nil {
		return nil, balance, fmt.Errorf("animation failed: %w", err)
	}

	gen := &models.Generation{
		UserID:     userID,
		Kind:       models.GenerationKindVideo,
		Prompt:     sourcePrompt,
		Movement:   req.Movement,
		Similarity: req.Similarity,
		ResultURL:  out.Video.URL,
		Cost:       CostVideo,
	}
	if err := s.gens.Create(gen); err != nil {
		log.Errorf("[Generation] failed to record animation for user_id=%d: %v", userID, err)
	}

	newBalance, err := s.credits.Adjust(ctx, userID, -CostVideo)
	if err != nil {
		log.Errorf("[Generation] debit after successful animation failed for user_id=%d: %v", userID, err)
		newBalance = balance
	}

	if s.archiver != nil {
		go s.archiver.Archive(gen)
	}
	return gen, newBalance, nil
}
