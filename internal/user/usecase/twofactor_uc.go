package usecase

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"time"

	activitydomain "github.com/EMe-U/plotsure/internal/activity/domain"
	"github.com/EMe-U/plotsure/internal/auth"
	"github.com/EMe-U/plotsure/internal/platform/logger"
	"github.com/EMe-U/plotsure/internal/user/domain"
	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	backupCodeCount = 8
	backupCodeLen   = 8
	totpSkew        = 2
	qrCodeSize      = 200
)

// TwoFactorSetup is returned once, when a secret is generated.
type TwoFactorSetup struct {
	Secret      string   `json:"secret"`
	OTPAuthURL  string   `json:"otpauth_url"`
	QRCode      string   `json:"qr_code"`
	BackupCodes []string `json:"backup_codes"`
}

// TwoFactorStatus reports whether 2FA is active for an account.
type TwoFactorStatus struct {
	Enabled              bool `json:"enabled"`
	BackupCodesRemaining int  `json:"backup_codes_remaining"`
}

type TwoFactorUsecase struct {
	repo     domain.UserRepository
	activity ActivityRecorder
	logger   *logger.Logger
	issuer   string
	hashCost int
	now      func() time.Time
}

func NewTwoFactorUsecase(repo domain.UserRepository, activity ActivityRecorder, issuer string, log *logger.Logger) *TwoFactorUsecase {
	return &TwoFactorUsecase{
		repo:     repo,
		activity: activity,
		logger:   log.Named("TwoFactorUsecase"),
		issuer:   issuer,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// Setup generates a new secret and backup codes for an admin. 2FA stays
// disabled until the first code is verified.
func (uc *TwoFactorUsecase) Setup(ctx context.Context, actor *auth.Identity) (*TwoFactorSetup, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	user, err := uc.repo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      uc.issuer,
		AccountName: user.Email,
	})
	if err != nil {
		uc.logger.Error("Failed to generate TOTP key", zap.String("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("generate totp key: %w", err)
	}

	qr, err := qrDataURL(key)
	if err != nil {
		uc.logger.Error("Failed to render QR code", zap.String("user_id", user.ID), zap.Error(err))
		return nil, err
	}

	codes, hashes, err := uc.newBackupCodes()
	if err != nil {
		return nil, err
	}

	if err := uc.repo.SetTwoFactor(ctx, user.ID, false, key.Secret(), hashes); err != nil {
		uc.logger.Error("Failed to store TOTP secret", zap.String("user_id", user.ID), zap.Error(err))
		return nil, err
	}

	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionSetup2FA,
		Entity:   activitydomain.EntityUser,
		EntityID: user.ID,
	})
	uc.logger.Info("2FA secret generated", zap.String("user_id", user.ID))

	return &TwoFactorSetup{
		Secret:      key.Secret(),
		OTPAuthURL:  key.URL(),
		QRCode:      qr,
		BackupCodes: codes,
	}, nil
}

// Verify checks a TOTP code. The first successful check enables 2FA.
func (uc *TwoFactorUsecase) Verify(ctx context.Context, actor *auth.Identity, code string) error {
	user, err := uc.repo.GetByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if user.TwoFactorSecret == "" {
		return domain.ErrTwoFactorNotSetUp
	}
	if !validateTOTP(code, user.TwoFactorSecret, uc.now()) {
		uc.logger.Info("2FA verification failed", zap.String("user_id", user.ID))
		return domain.ErrInvalidTOTP
	}

	if !user.TwoFactorEnabled {
		if err := uc.repo.SetTwoFactor(ctx, user.ID, true, user.TwoFactorSecret, user.BackupCodes); err != nil {
			uc.logger.Error("Failed to enable 2FA", zap.String("user_id", user.ID), zap.Error(err))
			return err
		}
		uc.logger.Info("2FA enabled", zap.String("user_id", user.ID))
	}

	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionVerify2FA,
		Entity:   activitydomain.EntityUser,
		EntityID: user.ID,
	})
	return nil
}

// Disable turns 2FA off after checking a current TOTP or backup code.
func (uc *TwoFactorUsecase) Disable(ctx context.Context, actor *auth.Identity, code string) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	user, err := uc.repo.GetByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if user.TwoFactorSecret == "" {
		return domain.ErrTwoFactorNotSetUp
	}

	ok, err := verifySecondFactor(ctx, uc.repo, user, code, uc.now())
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidTOTP
	}

	if err := uc.repo.SetTwoFactor(ctx, user.ID, false, "", nil); err != nil {
		uc.logger.Error("Failed to disable 2FA", zap.String("user_id", user.ID), zap.Error(err))
		return err
	}
	uc.activity.Record(ctx, activitydomain.Entry{
		Actor:    actor,
		Action:   activitydomain.ActionDisable2FA,
		Entity:   activitydomain.EntityUser,
		EntityID: user.ID,
	})
	uc.logger.Info("2FA disabled", zap.String("user_id", user.ID))
	return nil
}

func (uc *TwoFactorUsecase) Status(ctx context.Context, actor *auth.Identity) (*TwoFactorStatus, error) {
	user, err := uc.repo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return &TwoFactorStatus{
		Enabled:              user.TwoFactorEnabled,
		BackupCodesRemaining: len(user.BackupCodes),
	}, nil
}

func (uc *TwoFactorUsecase) newBackupCodes() ([]string, []string, error) {
	codes := make([]string, 0, backupCodeCount)
	hashes := make([]string, 0, backupCodeCount)
	for i := 0; i < backupCodeCount; i++ {
		code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:backupCodeLen])
		hash, err := bcrypt.GenerateFromPassword([]byte(code), uc.hashCost)
		if err != nil {
			return nil, nil, fmt.Errorf("hash backup code: %w", err)
		}
		codes = append(codes, code)
		hashes = append(hashes, string(hash))
	}
	return codes, hashes, nil
}

func validateTOTP(code, secret string, at time.Time) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, at.UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// verifySecondFactor accepts a TOTP code or an unused backup code. A
// matching backup code is consumed.
func verifySecondFactor(ctx context.Context, repo domain.UserRepository, user *domain.User, code string, at time.Time) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" || user.TwoFactorSecret == "" {
		return false, nil
	}
	if validateTOTP(code, user.TwoFactorSecret, at) {
		return true, nil
	}

	normalized := strings.ToUpper(code)
	for _, hash := range user.BackupCodes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(normalized)) != nil {
			continue
		}
		consumed, err := repo.ConsumeBackupCode(ctx, user.ID, hash)
		if err != nil {
			return false, err
		}
		return consumed, nil
	}
	return false, nil
}

func qrDataURL(key *otp.Key) (string, error) {
	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return "", fmt.Errorf("render qr image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode qr image: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
