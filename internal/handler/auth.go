package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/cradoe/gopass"
	"github.com/pascaldekloe/jwt"

	"github.com/cradoe/quizash/internal/config"
	"github.com/cradoe/quizash/internal/errHandler"
	"github.com/cradoe/quizash/internal/helper"
	"github.com/cradoe/quizash/internal/models"
	"github.com/cradoe/quizash/internal/repository"
	"github.com/cradoe/quizash/internal/request"
	"github.com/cradoe/quizash/internal/response"
	"github.com/cradoe/quizash/internal/validator"
)

const (
	UserActivityLogRegistrationDescription = "Created account"
	UserActivityLogLoginDescription        = "Logged in"
	UserActivityLogFailedLoginDescription  = "Failed login attempt"

	referralCodeLength = 8
)

type authHandler struct {
	userRepo     repository.UserRepository
	activityRepo repository.ActivityRepository
	errHandler   *errHandler.ErrorHandler
	helper       *helper.HelperRepository
	config       *config.Config
}

func NewAuthHandler(userRepo repository.UserRepository, activityRepo repository.ActivityRepository, errHandler *errHandler.ErrorHandler, helper *helper.HelperRepository, config *config.Config) *authHandler {
	return &authHandler{
		userRepo:     userRepo,
		activityRepo: activityRepo,
		errHandler:   errHandler,
		helper:       helper,
		config:       config,
	}
}

func (h *authHandler) HandleAuthRegister(w http.ResponseWriter, r *http.Request) {
	var input struct {
		FirstName    string              `json:"first_name"`
		LastName     string              `json:"last_name"`
		Email        string              `json:"email"`
		Password     string              `json:"password"`
		ReferralCode string              `json:"referral_code"`
		Validator    validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	// the Validate function returns a slice of errors if the password does
	// not meet the minimum requirements
	_, errs := gopass.Validate(input.Password)
	if errs != nil {
		h.errHandler.FailedValidation(w, r, errs)
		return
	}

	_, found, err := h.userRepo.GetByEmail(input.Email)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.FirstName), "First name is required")
	input.Validator.Check(validator.NotBlank(input.LastName), "Last name is required")
	input.Validator.Check(validator.NotBlank(input.Email), "Email is required")
	input.Validator.Check(validator.IsEmail(input.Email), "Must be a valid email address")
	input.Validator.Check(!found, "Email is already in use")

	// The referral code is optional, but when supplied it must resolve to an
	// existing account so the referrer can be paid later.
	var referredBy *models.User
	if input.ReferralCode != "" {
		referrer, found, err := h.userRepo.FindByReferralCode(input.ReferralCode)
		if err != nil {
			h.errHandler.ServerError(w, r, err)
			return
		}
		input.Validator.Check(found, "Invalid referral code")
		referredBy = referrer
	}

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	hashedPassword, err := gopass.Hash(input.Password)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	referralCode, err := h.generateUniqueReferralCode()
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	user := &models.User{
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Email:          input.Email,
		HashedPassword: hashedPassword,
		ReferralCode:   referralCode,
	}
	if referredBy != nil {
		user.ReferredBy.String = referredBy.ReferralCode
		user.ReferredBy.Valid = true
	}

	userID, err := h.userRepo.Insert(user, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	h.helper.BackgroundTask(r, func() error {
		_, err := h.activityRepo.Insert(&repository.ActivityLog{
			UserID:      repository.NullString(userID),
			Entity:      repository.ActivityLogUserEntity,
			EntityId:    userID,
			Description: UserActivityLogRegistrationDescription,
		})
		if err != nil {
			log.Printf("Error logging user registration action: %v", err)
			return err
		}
		return nil
	})

	data := map[string]string{
		"referral_code": referralCode,
	}
	message := "Account created successfully"

	err = response.JSONCreatedResponse(w, data, message)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

// generateUniqueReferralCode retries on the unlikely event of a collision.
func (h *authHandler) generateUniqueReferralCode() (string, error) {
	for {
		code, err := helper.GenerateReferralCode(referralCodeLength)
		if err != nil {
			return "", err
		}
		exists, err := h.userRepo.CheckIfReferralCodeExist(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}

func (h *authHandler) HandleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email     string              `json:"email"`
		Password  string              `json:"password"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	user, found, err := h.userRepo.GetByEmail(input.Email)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Email), "Email is required")
	input.Validator.Check(validator.IsEmail(input.Email), "Must be a valid email address")
	input.Validator.Check(found, "Incorrect email/password")

	if found {
		passwordMatches, err := gopass.ComparePasswordAndHash(input.Password, user.HashedPassword)
		if err != nil {
			h.errHandler.ServerError(w, r, err)
			return
		}

		input.Validator.Check(validator.NotBlank(input.Password), "Password is required")
		input.Validator.Check(passwordMatches, "Incorrect email/password")

		if !passwordMatches {
			h.helper.BackgroundTask(r, func() error {
				_, err := h.activityRepo.Insert(&repository.ActivityLog{
					UserID:      repository.NullString(user.ID),
					Entity:      repository.ActivityLogUserEntity,
					EntityId:    user.ID,
					Description: UserActivityLogFailedLoginDescription,
				})
				if err != nil {
					log.Printf("Error logging failed login action: %v", err)
					return err
				}
				return nil
			})
		}
	}

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	if user.Status != repository.UserAccountActiveStatus {
		message := "Account has been locked. Please contact support"
		response.JSONErrorResponse(w, nil, message, http.StatusForbidden, nil)
		return
	}

	h.helper.BackgroundTask(r, func() error {
		_, err := h.activityRepo.Insert(&repository.ActivityLog{
			UserID:      repository.NullString(user.ID),
			Entity:      repository.ActivityLogUserEntity,
			EntityId:    user.ID,
			Description: UserActivityLogLoginDescription,
		})
		if err != nil {
			log.Printf("Error logging successful login action: %v", err)
			return err
		}
		return nil
	})

	var claims jwt.Claims
	claims.Subject = user.ID

	expiry := time.Now().Add(24 * time.Hour)
	claims.Issued = jwt.NewNumericTime(time.Now())
	claims.NotBefore = jwt.NewNumericTime(time.Now())
	claims.Expires = jwt.NewNumericTime(expiry)

	claims.Issuer = h.config.BaseURL
	claims.Audiences = []string{h.config.BaseURL}

	jwtBytes, err := claims.HMACSign(jwt.HS256, []byte(h.config.Jwt.SecretKey))
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := map[string]string{
		"auth_token":   string(jwtBytes),
		"token_expiry": expiry.Format(time.RFC3339),
	}
	message := "Login succesful"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
