// Package api contains the vendor wire contract: the closed set of
// form-encoded requests and the JSON envelope every response decodes into.
package api

import (
	"fmt"
	"net/url"

	"authsecure/pkg/contracts/domain"
)

// OperationType is the value of the "type" form field
type OperationType string

const (
	OperationInit     OperationType = "init"
	OperationLogin    OperationType = "login"
	OperationRegister OperationType = "register"
	OperationLicense  OperationType = "license"
)

// Form field names
const (
	FieldType      = "type"
	FieldName      = "name"
	FieldOwnerID   = "ownerid"
	FieldSecret    = "secret"
	FieldVersion   = "ver"
	FieldSessionID = "sessionid"
	FieldUsername  = "username"
	FieldPassword  = "pass"
	FieldLicense   = "license"
	FieldHWID      = "hwid"
)

// Request is implemented only by the operation structs in this package
type Request interface {
	Type() OperationType
	// Values serializes the request to its exact wire key set
	Values() url.Values
	isRequest()
}

// AppCredentials identifies the calling application on every request
type AppCredentials struct {
	Name    string `form:"name" validate:"required"`
	OwnerID string `form:"ownerid" validate:"required"`
}

// InitRequest opens a session
type InitRequest struct {
	AppCredentials
	Secret  string `form:"secret" validate:"required"`
	Version string `form:"ver" validate:"required"`
}

// LoginRequest authenticates a user within a session
type LoginRequest struct {
	AppCredentials
	SessionID string `form:"sessionid" validate:"required"`
	Username  string `form:"username" validate:"required"`
	Password  string `form:"pass" validate:"required"`
	HWID      string `form:"hwid" validate:"required"`
}

// RegisterRequest creates a user from a license key within a session
type RegisterRequest struct {
	AppCredentials
	SessionID string `form:"sessionid" validate:"required"`
	Username  string `form:"username" validate:"required"`
	Password  string `form:"pass" validate:"required"`
	License   string `form:"license" validate:"required"`
	HWID      string `form:"hwid" validate:"required"`
}

// LicenseRequest authenticates with a license key alone
type LicenseRequest struct {
	AppCredentials
	SessionID string `form:"sessionid" validate:"required"`
	License   string `form:"license" validate:"required"`
	HWID      string `form:"hwid" validate:"required"`
}

func (InitRequest) Type() OperationType     { return OperationInit }
func (LoginRequest) Type() OperationType    { return OperationLogin }
func (RegisterRequest) Type() OperationType { return OperationRegister }
func (LicenseRequest) Type() OperationType  { return OperationLicense }

func (InitRequest) isRequest()     {}
func (LoginRequest) isRequest()    {}
func (RegisterRequest) isRequest() {}
func (LicenseRequest) isRequest()  {}

func (r InitRequest) Values() url.Values {
	return url.Values{
		FieldType:    {string(OperationInit)},
		FieldName:    {r.Name},
		FieldOwnerID: {r.OwnerID},
		FieldSecret:  {r.Secret},
		FieldVersion: {r.Version},
	}
}

func (r LoginRequest) Values() url.Values {
	return url.Values{
		FieldType:      {string(OperationLogin)},
		FieldSessionID: {r.SessionID},
		FieldUsername:  {r.Username},
		FieldPassword:  {r.Password},
		FieldHWID:      {r.HWID},
		FieldName:      {r.Name},
		FieldOwnerID:   {r.OwnerID},
	}
}

func (r RegisterRequest) Values() url.Values {
	return url.Values{
		FieldType:      {string(OperationRegister)},
		FieldSessionID: {r.SessionID},
		FieldUsername:  {r.Username},
		FieldPassword:  {r.Password},
		FieldLicense:   {r.License},
		FieldHWID:      {r.HWID},
		FieldName:      {r.Name},
		FieldOwnerID:   {r.OwnerID},
	}
}

func (r LicenseRequest) Values() url.Values {
	return url.Values{
		FieldType:      {string(OperationLicense)},
		FieldSessionID: {r.SessionID},
		FieldLicense:   {r.License},
		FieldHWID:      {r.HWID},
		FieldName:      {r.Name},
		FieldOwnerID:   {r.OwnerID},
	}
}

// ParseRequest decodes a submitted form back into its operation struct.
// Unknown or missing types are an error; field presence is left to validation.
func ParseRequest(form url.Values) (Request, error) {
	creds := AppCredentials{Name: form.Get(FieldName), OwnerID: form.Get(FieldOwnerID)}

	switch OperationType(form.Get(FieldType)) {
	case OperationInit:
		return InitRequest{
			AppCredentials: creds,
			Secret:         form.Get(FieldSecret),
			Version:        form.Get(FieldVersion),
		}, nil
	case OperationLogin:
		return LoginRequest{
			AppCredentials: creds,
			SessionID:      form.Get(FieldSessionID),
			Username:       form.Get(FieldUsername),
			Password:       form.Get(FieldPassword),
			HWID:           form.Get(FieldHWID),
		}, nil
	case OperationRegister:
		return RegisterRequest{
			AppCredentials: creds,
			SessionID:      form.Get(FieldSessionID),
			Username:       form.Get(FieldUsername),
			Password:       form.Get(FieldPassword),
			License:        form.Get(FieldLicense),
			HWID:           form.Get(FieldHWID),
		}, nil
	case OperationLicense:
		return LicenseRequest{
			AppCredentials: creds,
			SessionID:      form.Get(FieldSessionID),
			License:        form.Get(FieldLicense),
			HWID:           form.Get(FieldHWID),
		}, nil
	case "":
		return nil, fmt.Errorf("missing %q field", FieldType)
	default:
		return nil, fmt.Errorf("unsupported request type %q", form.Get(FieldType))
	}
}

// Envelope is the JSON object every response decodes into.
// Success selects which of the remaining fields are meaningful.
type Envelope struct {
	Success   bool             `json:"success"`
	Message   domain.Scalar    `json:"message,omitempty"`
	SessionID string           `json:"sessionid,omitempty"`
	Info      *domain.UserInfo `json:"info,omitempty"`
}
