// Package user はログインユーザーのロール管理を提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/patientadmin/internal/model"
	"github.com/hitoshi/patientadmin/internal/repository"
)

// Service はユーザープロフィールのサービス層。
// IdPのsubjectに対応するロールを解決する。
type Service struct {
	profileRepo repository.ProfileRepository
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(profileRepo repository.ProfileRepository) *Service {
	return &Service{
		profileRepo: profileRepo,
		now:         time.Now,
	}
}

// ResolveRole はsubjectに対応するプロフィールを返す。
// プロフィールが存在しない場合はRoleUserで作成してから返す。
// 既存プロフィールのロールは変更しない。作成が競合した場合は既存行を返す。
func (s *Service) ResolveRole(ctx context.Context, subject, email string) (*model.UserProfile, error) {
	if subject == "" {
		return nil, fmt.Errorf("subject is empty")
	}

	profile, err := s.profileRepo.FindBySubject(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if profile != nil {
		return profile, nil
	}

	now := s.now()
	profile = &model.UserProfile{
		Subject:   subject,
		Email:     email,
		Role:      model.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.profileRepo.CreateIfAbsent(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの作成に失敗しました: %w", err)
	}
	if !created {
		// 取得と作成の間に他のリクエストが作成した行を正とする
		existing, err := s.profileRepo.FindBySubject(ctx, subject)
		if err != nil {
			return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("profile for subject disappeared after conflict")
		}
		return existing, nil
	}

	slog.Info("プロフィールを作成しました",
		slog.String("subject", subject),
		slog.String("role", string(profile.Role)),
	)

	return profile, nil
}
