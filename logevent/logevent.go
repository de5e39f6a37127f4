// Package logevent defines the audit events buffered between request handlers and
// the document store, together with the buffer key each category is pushed to.
package logevent

import jsoniter "github.com/json-iterator/go"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Category string

const (
	CategoryLogin     Category = "login"
	CategoryOperation Category = "operation"
)

const (
	KeyLogin     = "logger:login"
	KeyOperation = "logger:operation"
)

// Key returns the buffer key events of the category are pushed to.
func (c Category) Key() string {
	switch c {
	case CategoryLogin:
		return KeyLogin
	case CategoryOperation:
		return KeyOperation
	}
	return "logger:" + string(c)
}

// Collection is the document store collection the category is archived in.
func (c Category) Collection() string {
	switch c {
	case CategoryLogin:
		return "login_log"
	case CategoryOperation:
		return "operate_log"
	}
	return string(c) + "_log"
}

type LoginEvent struct {
	TraceID          string `json:"trace_id" bson:"trace_id"`
	UserID           int64  `json:"user_id" bson:"user_id"`
	UserType         int32  `json:"user_type" bson:"user_type"`
	Username         string `json:"username" bson:"username"`
	Result           int32  `json:"result" bson:"result"`
	UserIP           string `json:"user_ip" bson:"user_ip"`
	UserAgent        string `json:"user_agent" bson:"user_agent"`
	DeptCode         string `json:"dept_code" bson:"dept_code"`
	DeptID           int64  `json:"dept_id" bson:"dept_id"`
	OperatorID       int64  `json:"operator_id" bson:"operator_id"`
	OperatorNickname string `json:"operator_nickname" bson:"operator_nickname"`
	OperateTime      int64  `json:"operate_time" bson:"operate_time"`
}

type OperationEvent struct {
	TraceID          string `json:"trace_id" bson:"trace_id"`
	UserID           int64  `json:"user_id" bson:"user_id"`
	UserType         int32  `json:"user_type" bson:"user_type"`
	Type             string `json:"type" bson:"type"`
	SubType          string `json:"sub_type" bson:"sub_type"`
	BizID            int64  `json:"biz_id" bson:"biz_id"`
	Action           string `json:"action" bson:"action"`
	Success          bool   `json:"success" bson:"success"`
	Extra            string `json:"extra" bson:"extra"`
	RequestMethod    string `json:"request_method" bson:"request_method"`
	RequestURL       string `json:"request_url" bson:"request_url"`
	UserIP           string `json:"user_ip" bson:"user_ip"`
	UserAgent        string `json:"user_agent" bson:"user_agent"`
	DeptCode         string `json:"dept_code" bson:"dept_code"`
	DeptID           int64  `json:"dept_id" bson:"dept_id"`
	OperatorID       int64  `json:"operator_id" bson:"operator_id"`
	OperatorNickname string `json:"operator_nickname" bson:"operator_nickname"`
	OperateTime      int64  `json:"operate_time" bson:"operate_time"`
}

// Decode parses a buffered payload into T.
func Decode[T LoginEvent | OperationEvent](payload string) (v T, err error) {
	err = json.UnmarshalFromString(payload, &v)
	return
}

func Encode[T LoginEvent | OperationEvent](v T) (string, error) {
	return json.MarshalToString(v)
}
