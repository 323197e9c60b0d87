package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/eduquest/user-service/internal/application"
	"github.com/eduquest/user-service/internal/domain/entity"
	"github.com/eduquest/user-service/pkg/response"
)

// Operation is the closed set of command names this service answers.
type Operation string

const (
	OpRegister           Operation = "register"
	OpActivateUser       Operation = "activateUser"
	OpLogin              Operation = "login"
	OpGetUser            Operation = "getUser"
	OpSocialAuth         Operation = "socialAuth"
	OpUpdateUserInfo     Operation = "updateUserInfo"
	OpUpdateUserPassword Operation = "updateUserPassword"
	OpGetUsers           Operation = "get-users"
	OpGetInstructors     Operation = "get-instructors"
	OpDeleteUser         Operation = "delete-user"
	OpUpdateUserAvatar   Operation = "updateUserAvatar"
	OpForgotPassword     Operation = "forgot-password"
	OpVerifyResetCode    Operation = "verify-reset-code"
	OpResetPassword      Operation = "reset-password"
	OpUpdateUserRole     Operation = "update-user-role"
	OpUpdateCourseList   Operation = "update-course-list"
	OpVerifyUser         Operation = "verify-user"
	OpBlockUser          Operation = "block-user"
	OpUnblockUser        Operation = "un-block-user"
	OpGetUserAnalytics   Operation = "getUserAnalytics"
	OpGetUserByRole      Operation = "get-user-by-role"
)

type handlerFunc func(ctx context.Context, data json.RawMessage) any

// Dispatcher maps operation names onto identity-service calls and shapes
// the reply bodies. Every path, including panics and timeouts, yields a
// result so the consumer can publish exactly one reply.
type Dispatcher struct {
	svc      *application.Service
	validate *validator.Validate
	logger   *logrus.Logger
	timeout  time.Duration
	handlers map[Operation]handlerFunc
}

func NewDispatcher(svc *application.Service, logger *logrus.Logger, timeout time.Duration) *Dispatcher {
	d := &Dispatcher{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
		timeout:  timeout,
	}
	d.handlers = map[Operation]handlerFunc{
		OpRegister:           d.register,
		OpActivateUser:       d.activateUser,
		OpLogin:              d.login,
		OpGetUser:            d.getUser,
		OpSocialAuth:         d.socialAuth,
		OpUpdateUserInfo:     d.updateUserInfo,
		OpUpdateUserPassword: d.updateUserPassword,
		OpGetUsers:           d.getUsers,
		OpGetInstructors:     d.getInstructors,
		OpDeleteUser:         d.deleteUser,
		OpUpdateUserAvatar:   d.updateUserAvatar,
		OpForgotPassword:     d.forgotPassword,
		OpVerifyResetCode:    d.verifyResetCode,
		OpResetPassword:      d.resetPassword,
		OpUpdateUserRole:     d.updateUserRole,
		OpUpdateCourseList:   d.updateCourseList,
		OpVerifyUser:         d.verifyUser,
		OpBlockUser:          d.blockUser,
		OpUnblockUser:        d.unblockUser,
		OpGetUserAnalytics:   d.getUserAnalytics,
		OpGetUserByRole:      d.getUserByRole,
	}
	return d
}

// Dispatch executes the named operation and publishes its result. The
// one-reply guarantee lives here: whatever the handler does, pub.Publish is
// called exactly once.
func (d *Dispatcher) Dispatch(ctx context.Context, pub ReplyPublisher, operation string, data json.RawMessage, correlationID, replyTo string) {
	log := d.logger.WithFields(logrus.Fields{
		"operation":      operation,
		"correlation_id": correlationID,
	})
	log.Debug("dispatching command")

	result := d.execute(ctx, operation, data)
	if err := pub.Publish(ctx, result, correlationID, replyTo); err != nil {
		log.WithError(err).Error("reply publish failed")
		return
	}
	log.Debug("reply published")
}

func (d *Dispatcher) execute(ctx context.Context, operation string, data json.RawMessage) any {
	h, ok := d.handlers[Operation(operation)]
	if !ok {
		return UnknownOperationReply
	}

	hctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan any, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.WithField("operation", operation).WithField("panic", r).Error("handler panicked")
				done <- response.Failure(http.StatusInternalServerError, "internal error")
			}
		}()
		done <- h(hctx, data)
	}()

	select {
	case res := <-done:
		return res
	case <-hctx.Done():
		// The handler is abandoned, but the caller still gets a reply.
		return response.Failure(http.StatusGatewayTimeout, "operation timed out")
	}
}

// decode unmarshals and validates an operation payload.
func (d *Dispatcher) decode(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return err
	}
	return d.validate.Struct(dst)
}

func (d *Dispatcher) invalidPayload(err error) response.Result {
	return response.Failure(http.StatusBadRequest, "invalid payload: "+err.Error())
}

// failure maps identity-service errors onto the caller-visible legacy
// messages and statuses.
func failure(err error) response.Result {
	switch {
	case errors.Is(err, application.ErrUserNotFound):
		return response.Failure(http.StatusNotFound, "User not found")
	case errors.Is(err, application.ErrEmailTaken):
		return response.Failure(http.StatusConflict, "Email Already Exist")
	case errors.Is(err, application.ErrInvalidCredentials):
		return response.Failure(http.StatusUnauthorized, "Incorrect password")
	case errors.Is(err, application.ErrAccountBlocked):
		return response.Failure(http.StatusUnauthorized, "User is Blocked")
	case errors.Is(err, application.ErrInvalidActivationCode):
		return response.Failure(http.StatusBadRequest, "Invalid Code!")
	case errors.Is(err, application.ErrActivationInvalid):
		return response.Failure(http.StatusUnauthorized, "Invalid or expired activation token")
	case errors.Is(err, application.ErrInvalidResetCode):
		return response.Failure(http.StatusUnauthorized, "Invalid reset code")
	case errors.Is(err, application.ErrResetTokenInvalid):
		return response.Failure(http.StatusUnauthorized, "Invalid or expired reset token")
	case errors.Is(err, application.ErrInvalidRole):
		return response.Failure(http.StatusBadRequest, "Invalid role provided")
	case errors.Is(err, application.ErrStorageFailure):
		return response.Failure(http.StatusBadGateway, "Avatar upload failed")
	default:
		return response.Failure(http.StatusInternalServerError, "Internal server error")
	}
}

type registerInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (d *Dispatcher) register(ctx context.Context, data json.RawMessage) any {
	var in registerInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	res, err := d.svc.Register(ctx, in.Name, in.Email, in.Password, "")
	if err != nil {
		if errors.Is(err, application.ErrEmailTaken) {
			return response.Failure(http.StatusConflict, "Email Already Exist!")
		}
		return failure(err)
	}
	return response.OK(http.StatusCreated, "Activation code send to the Email", res.Activation)
}

type activateInput struct {
	Token          string `json:"token" validate:"required"`
	ActivationCode string `json:"activationCode" validate:"required"`
}

func (d *Dispatcher) activateUser(ctx context.Context, data json.RawMessage) any {
	var in activateInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	if err := d.svc.Activate(ctx, in.Token, in.ActivationCode); err != nil {
		return failure(err)
	}
	return response.OK(http.StatusCreated, "Successfully registered", nil)
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (d *Dispatcher) login(ctx context.Context, data json.RawMessage) any {
	var in loginInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	creds, err := d.svc.Login(ctx, in.Email, in.Password)
	if err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			return response.Failure(http.StatusUnauthorized, "Invalid email")
		}
		return failure(err)
	}
	return creds
}

type idInput struct {
	ID string `json:"id" validate:"required"`
}

func (d *Dispatcher) getUser(ctx context.Context, data json.RawMessage) any {
	var in idInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	u, err := d.svc.GetUser(ctx, in.ID)
	if err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			// Contract: reply body is JSON null when the user does not
			// exist. The typed nil keeps the publisher's nil guard out of
			// the way.
			var nothing *entity.User
			return nothing
		}
		return failure(err)
	}
	return u
}

type socialAuthInput struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Avatar string `json:"avatar" validate:"required"`
}

func (d *Dispatcher) socialAuth(ctx context.Context, data json.RawMessage) any {
	var in socialAuthInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	res, err := d.svc.Register(ctx, in.Name, in.Email, "", in.Avatar)
	if err != nil {
		return failure(err)
	}
	return map[string]any{
		"success":      true,
		"accessToken":  res.Credentials.AccessToken,
		"refreshToken": res.Credentials.RefreshToken,
		"user":         res.Credentials.User,
	}
}

type updateInfoInput struct {
	UserID string `json:"userId" validate:"required"`
	Name   string `json:"name" validate:"required"`
}

func (d *Dispatcher) updateUserInfo(ctx context.Context, data json.RawMessage) any {
	var in updateInfoInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	if err := d.svc.UpdateInfo(ctx, in.UserID, in.Name); err != nil {
		return failure(err)
	}
	return response.OK(http.StatusCreated, "User info updated successfully", nil)
}

type updatePasswordInput struct {
	UserID      string `json:"userId" validate:"required"`
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

func (d *Dispatcher) updateUserPassword(ctx context.Context, data json.RawMessage) any {
	var in updatePasswordInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	if err := d.svc.UpdatePassword(ctx, in.UserID, in.OldPassword, in.NewPassword); err != nil {
		if errors.Is(err, application.ErrInvalidCredentials) {
			return response.Failure(http.StatusUnauthorized, "Password not match")
		}
		return failure(err)
	}
	return response.OK(http.StatusCreated, "User password updated successfully", nil)
}

func (d *Dispatcher) getUsers(ctx context.Context, _ json.RawMessage) any {
	users, err := d.svc.ListByRole(ctx, entity.RoleUser)
	if err != nil {
		return failure(err)
	}
	return users
}

func (d *Dispatcher) getInstructors(ctx context.Context, _ json.RawMessage) any {
	users, err := d.svc.ListByRole(ctx, entity.RoleInstructor)
	if err != nil {
		return failure(err)
	}
	return users
}

type userIDInput struct {
	UserID string `json:"userId" validate:"required"`
}

func (d *Dispatcher) deleteUser(ctx context.Context, data json.RawMessage) any {
	var in userIDInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	if err := d.svc.Delete(ctx, in.UserID); err != nil {
		return failure(err)
	}
	return map[string]any{"success": true}
}

type avatarInput struct {
	Data      []byte `json:"data" validate:"required"`
	FieldName string `json:"fieldName"`
	Mimetype  string `json:"mimetype" validate:"required"`
	ID        string `json:"id" validate:"required"`
}

func (d *Dispatcher) updateUserAvatar(ctx context.Context, data json.RawMessage) any {
	var in avatarInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	if err := d.svc.UpdateAvatar(ctx, in.ID, in.Data, in.Mimetype); err != nil {
		return failure(err)
	}
	return response.OK(http.StatusCreated, "Avatar Updated Successfully", nil)
}

type emailInput struct {
	Email string `json:"email" validate:"required,email"`
}

func (d *Dispatcher) forgotPassword(ctx context.Context, data json.RawMessage) any {
	var in emailInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	res, err := d.svc.ForgotPassword(ctx, in.Email)
	if err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			return response.Failure(http.StatusNotFound, "User not found!")
		}
		return failure(err)
	}
	return response.OK(http.StatusCreated, "Reset code send to the Email", res)
}

type verifyResetInput struct {
	Token     string `json:"token" validate:"required"`
	ResetCode string `json:"resetCode" validate:"required"`
}

func (d *Dispatcher) verifyResetCode(ctx context.Context, data json.RawMessage) any {
	var in verifyResetInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	userID, err := d.svc.VerifyResetCode(ctx, in.Token, in.ResetCode)
	if err != nil {
		return failure(err)
	}
	return map[string]any{
		"success": true,
		"userId":  userID,
		"message": "Reset code verified successfully",
	}
}

type resetPasswordInput struct {
	UserID      string `json:"userId" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// resetResult keeps the legacy reply shape of the reset-password operation.
type resetResult struct {
	Msg    string `json:"msg"`
	Status int    `json:"status"`
}

func (d *Dispatcher) resetPassword(ctx context.Context, data json.RawMessage) any {
	var in resetPasswordInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	if err := d.svc.ResetPassword(ctx, in.UserID, in.NewPassword); err != nil {
		return resetResult{Msg: failure(err).Message, Status: http.StatusBadRequest}
	}
	return resetResult{Msg: "Password reset successfully.", Status: http.StatusOK}
}

type updateRoleInput struct {
	UserID  string `json:"userId" validate:"required"`
	NewRole string `json:"newRole" validate:"required"`
}

func (d *Dispatcher) updateUserRole(ctx context.Context, data json.RawMessage) any {
	var in updateRoleInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	u, err := d.svc.UpdateRole(ctx, in.UserID, in.NewRole)
	if err != nil {
		if errors.Is(err, application.ErrInvalidRole) {
			return map[string]any{"message": "Invalid role provided", "status": http.StatusBadRequest}
		}
		if errors.Is(err, application.ErrUserNotFound) {
			return map[string]any{"message": "User not found", "status": http.StatusBadRequest}
		}
		return failure(err)
	}
	return map[string]any{
		"success": true,
		"message": "User role updated successfully",
		"user":    u,
	}
}

type courseListInput struct {
	UserID   string `json:"userId" validate:"required"`
	CourseID string `json:"courseId" validate:"required"`
}

func (d *Dispatcher) updateCourseList(ctx context.Context, data json.RawMessage) any {
	var in courseListInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	if err := d.svc.UpdateCourseList(ctx, in.UserID, in.CourseID); err != nil {
		return failure(err)
	}
	return response.OK(http.StatusOK, "Updated course list", nil)
}

func (d *Dispatcher) verifyUser(ctx context.Context, data json.RawMessage) any {
	var in idInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	if err := d.svc.Verify(ctx, in.ID); err != nil {
		return failure(err)
	}
	return response.OK(http.StatusCreated, "Instructor Verified Successfully", nil)
}

func (d *Dispatcher) blockUser(ctx context.Context, data json.RawMessage) any {
	var in idInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	if err := d.svc.Block(ctx, in.ID); err != nil {
		return failure(err)
	}
	return map[string]any{
		"success": true,
		"message": "User Blocked Successfully",
		"status":  http.StatusOK,
		"userId":  in.ID,
	}
}

func (d *Dispatcher) unblockUser(ctx context.Context, data json.RawMessage) any {
	var in idInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	if err := d.svc.Unblock(ctx, in.ID); err != nil {
		return failure(err)
	}
	return response.OK(http.StatusOK, "User unBlocked Successfully", nil)
}

type analyticsInput struct {
	InstructorID string `json:"instructorId" validate:"required"`
}

func (d *Dispatcher) getUserAnalytics(ctx context.Context, data json.RawMessage) any {
	var in analyticsInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	series, err := d.svc.Analytics(ctx, in.InstructorID)
	if err != nil {
		return failure(err)
	}
	return series
}

type roleInput struct {
	Role string `json:"role" validate:"required"`
}

func (d *Dispatcher) getUserByRole(ctx context.Context, data json.RawMessage) any {
	var in roleInput
	if err := d.decode(data, &in); err != nil {
		return d.invalidPayload(err)
	}
	role, ok := entity.ParseRole(in.Role)
	if !ok {
		return response.Failure(http.StatusNotFound, "No users found for this role")
	}
	users, err := d.svc.ListByRole(ctx, role)
	if err != nil {
		return failure(err)
	}
	if len(users) == 0 {
		return response.Failure(http.StatusNotFound, "No users found for this role")
	}
	return response.OK(http.StatusOK, "Users retrieved successfully", users)
}
