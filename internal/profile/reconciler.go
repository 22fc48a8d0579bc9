// Package profile はIdentityと1:1で対応するプロフィールの照合と更新を提供する。
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/goalcoach/internal/auth"
	"github.com/hitoshi/goalcoach/internal/model"
	"github.com/hitoshi/goalcoach/internal/repository"
)

// OutcomeRecorder は照合結果のメトリクス記録インターフェース。
type OutcomeRecorder interface {
	RecordReconcileOutcome(outcome string)
}

// Reconciler はIdentityの観測に応じてプロフィールの存在を保証する。
// 同一Identityに対する並行した照合は単一の処理に合流し、
// 全呼び出し元が同じ結果を受け取る。
type Reconciler struct {
	profileRepo repository.ProfileRepository
	identRepo   repository.IdentityRepository
	recorder    OutcomeRecorder // nil可
	group       singleflight.Group
}

// NewReconciler はReconcilerを生成する。recorderはnilでもよい。
func NewReconciler(profileRepo repository.ProfileRepository, identRepo repository.IdentityRepository, recorder OutcomeRecorder) *Reconciler {
	return &Reconciler{
		profileRepo: profileRepo,
		identRepo:   identRepo,
		recorder:    recorder,
	}
}

// record は照合結果をメトリクスに記録する。
func (r *Reconciler) record(outcome string) {
	if r.recorder != nil {
		r.recorder.RecordReconcileOutcome(outcome)
	}
}

// GetOrCreate はIdentityに対応するプロフィールを取得し、
// 存在しない場合はデフォルト値で作成する。
//
// Identityがnilの場合は (nil, nil) を返す（プロフィール不在はエラーではない）。
// 作成が一意性制約違反で失敗した場合は別の照合が先に作成したとみなし、
// 再取得して既存の行を返す。その他の失敗はPROFILE_UNAVAILABLEとなり、
// 自動リトライはせず、次回のIdentity観測時に再試行される。
func (r *Reconciler) GetOrCreate(ctx context.Context, identity *model.Identity) (*model.Profile, error) {
	if identity == nil {
		return nil, nil
	}

	v, err, _ := r.group.Do(identity.ID, func() (interface{}, error) {
		return r.reconcile(ctx, identity)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Profile), nil
}

// Update は部分パッチをプロフィールにマージして更新する。
// プロフィールが存在しない場合はPROFILE_NOT_FOUNDを返す。
func (r *Reconciler) Update(ctx context.Context, identityID string, patch model.ProfilePatch) (*model.Profile, error) {
	profile, err := r.profileRepo.Update(ctx, identityID, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if profile == nil {
		return nil, model.NewProfileNotFoundError()
	}
	return profile, nil
}

// TransitionHandler はセッション遷移の購読ハンドラを返す。
// セッション確立（サインインまたは起動時復元）を契機にバックグラウンドで
// プロフィールを照合し、依存エンドポイントへの到達前に行が存在する状態を作る。
// 失敗はログに記録するのみで、次回の観測時に再試行される。
func (r *Reconciler) TransitionHandler() auth.TransitionHandler {
	return func(t auth.Transition) {
		if t.Kind != auth.TransitionEstablished {
			return
		}
		go r.reconcileByID(t.IdentityID)
	}
}

// reconcileByID はIdentity IDからプロフィール照合を実行する。
func (r *Reconciler) reconcileByID(identityID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	identity, err := r.identRepo.FindByID(ctx, identityID)
	if err != nil {
		slog.Error("failed to fetch identity for reconciliation",
			slog.String("identity_id", identityID),
			slog.String("error", err.Error()),
		)
		return
	}

	if _, err := r.GetOrCreate(ctx, identity); err != nil {
		slog.Error("profile reconciliation failed",
			slog.String("identity_id", identityID),
			slog.String("error", err.Error()),
		)
	}
}

// reconcile は取得→作成→再取得のプロトコルを実行する。
func (r *Reconciler) reconcile(ctx context.Context, identity *model.Identity) (*model.Profile, error) {
	profile, err := r.profileRepo.FindByID(ctx, identity.ID)
	if err != nil {
		r.record("failed")
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	if profile != nil {
		r.record("hit")
		return profile, nil
	}

	newProfile := defaultProfile(identity)
	if err := r.profileRepo.Create(ctx, newProfile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// 並行する照合が先に作成済み。既存の行を正とする。
			existing, fetchErr := r.profileRepo.FindByID(ctx, identity.ID)
			if fetchErr != nil {
				r.record("failed")
				return nil, fmt.Errorf("failed to re-fetch profile after conflict: %w", fetchErr)
			}
			if existing == nil {
				r.record("failed")
				return nil, model.NewProfileUnavailableError()
			}
			r.record("conflict_recovered")
			slog.Info("profile creation conflict recovered", slog.String("identity_id", identity.ID))
			return existing, nil
		}
		r.record("failed")
		slog.Error("profile creation failed",
			slog.String("identity_id", identity.ID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewProfileUnavailableError()
	}

	r.record("created")
	slog.Info("profile created", slog.String("identity_id", identity.ID))
	return newProfile, nil
}

// defaultProfile は新規プロフィールのデフォルト値を構築する。
// 表示名はメールアドレスのローカル部を初期値とする。
func defaultProfile(identity *model.Identity) *model.Profile {
	name := identity.Email
	if at := strings.Index(identity.Email, "@"); at > 0 {
		name = identity.Email[:at]
	}

	return &model.Profile{
		ID:                  identity.ID,
		Email:               identity.Email,
		Name:                &name,
		OnboardingCompleted: false,
		CreatedAt:           time.Now(),
	}
}
