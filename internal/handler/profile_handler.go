package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/goalcoach/internal/middleware"
	"github.com/hitoshi/goalcoach/internal/model"
)

// IdentityFinder はIdentityの検索に必要なインターフェース。
// repository.IdentityRepositoryの部分集合として定義する。
type IdentityFinder interface {
	FindByID(ctx context.Context, id string) (*model.Identity, error)
}

// ProfileReconcilerInterface はプロフィールハンドラーが必要とするインターフェース。
type ProfileReconcilerInterface interface {
	GetOrCreate(ctx context.Context, identity *model.Identity) (*model.Profile, error)
	Update(ctx context.Context, identityID string, patch model.ProfilePatch) (*model.Profile, error)
}

// ProfileHandler はプロフィール管理のHTTPハンドラー。
type ProfileHandler struct {
	reconciler ProfileReconcilerInterface
	identities IdentityFinder
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(reconciler ProfileReconcilerInterface, identities IdentityFinder) *ProfileHandler {
	return &ProfileHandler{
		reconciler: reconciler,
		identities: identities,
	}
}

// profileResponse はプロフィール情報のAPIレスポンス。
type profileResponse struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	Name                *string    `json:"name"`
	OnboardingCompleted bool       `json:"onboarding_completed"`
	FocusArea           *string    `json:"focus_area"`
	IncomeGoal          *int64     `json:"income_goal"`
	TargetDeadline      *time.Time `json:"target_deadline"`
	Obstacles           []string   `json:"obstacles"`
	CreatedAt           time.Time  `json:"created_at"`
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// 指定されなかったフィールドは変更しない。
type updateProfileRequest struct {
	Name                *string    `json:"name"`
	OnboardingCompleted *bool      `json:"onboarding_completed"`
	FocusArea           *string    `json:"focus_area"`
	IncomeGoal          *int64     `json:"income_goal"`
	TargetDeadline      *time.Time `json:"target_deadline"`
	Obstacles           []string   `json:"obstacles"`
}

// GetProfile は現在のユーザーのプロフィールを取得する。
// プロフィールが未作成の場合はデフォルト値で遅延作成する。
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	identity, err := h.identities.FindByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	profile, err := h.reconciler.GetOrCreate(r.Context(), identity)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if profile == nil {
		writeUnauthorized(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProfileResponse(profile))
}

// UpdateProfile はプロフィールを部分更新する。
// PATCH /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	profile, err := h.reconciler.Update(r.Context(), userID, model.ProfilePatch{
		Name:                req.Name,
		OnboardingCompleted: req.OnboardingCompleted,
		FocusArea:           req.FocusArea,
		IncomeGoal:          req.IncomeGoal,
		TargetDeadline:      req.TargetDeadline,
		Obstacles:           req.Obstacles,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProfileResponse(profile))
}

// toProfileResponse はmodel.ProfileからAPIレスポンスに変換する。
func toProfileResponse(profile *model.Profile) profileResponse {
	obstacles := profile.Obstacles
	if obstacles == nil {
		obstacles = []string{}
	}
	return profileResponse{
		ID:                  profile.ID,
		Email:               profile.Email,
		Name:                profile.Name,
		OnboardingCompleted: profile.OnboardingCompleted,
		FocusArea:           profile.FocusArea,
		IncomeGoal:          profile.IncomeGoal,
		TargetDeadline:      profile.TargetDeadline,
		Obstacles:           obstacles,
		CreatedAt:           profile.CreatedAt,
	}
}
