package erp

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// caseFields maps attribute names to the ids of the dispute attribute table.
var caseFields = map[string]string{
	"processor":       "PROCESSOR",
	"status_sales":    "ZZ_STAT_SL",
	"status":          "STAT_ORDERNO",
	"root_cause":      "FIN_ROOT_CCODE",
	"status_ac":       "ZZ_STAT_AC",
	"coordinator":     "FIN_COORDINATOR",
	"responsible":     "RESPONSIBLE",
	"reason":          "REASON_CODE",
	"disputed_amount": "FIN_CUSTDISP_AMT",
	"customer":        "FIN_KUNNR",
	"branch":          "ZZ_FILIALE",
}

// NotificationTypeStandard tags the YZ-type notifications the robot creates.
const NotificationTypeStandard = "YZ"

type rpcRequest struct {
	Function string `json:"function"`
	Params   any    `json:"params"`
}

type rpcError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	ObjectID int64  `json:"object_id"`
	User     string `json:"user"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// RPCClient talks to the ERP through the function-call bridge. Every call is
// synchronous and commits on the remote side before returning.
type RPCClient struct {
	base     string
	systemID string
	http     *http.Client
	log      *zap.Logger
}

// NewRPCClient creates a client for the bridge at baseURL. systemID names
// the connected ERP system (for example Q25 or P25).
func NewRPCClient(baseURL, systemID string, log *zap.Logger) *RPCClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &RPCClient{
		base:     baseURL,
		systemID: systemID,
		http:     &http.Client{Timeout: 300 * time.Second},
		log:      log,
	}
}

func (c *RPCClient) call(function string, params, out any) error {
	body, err := json.Marshal(rpcRequest{Function: function, Params: params})
	if err != nil {
		return fmt.Errorf("encode %s: %w", function, err)
	}

	resp, err := c.http.Post(c.base+"/rpc", "application/json", bytes.NewReader(body))
	if err != nil {
		return &CommunicationError{Call: function, Message: err.Error()}
	}
	defer resp.Body.Close()

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return &CommunicationError{Call: function, Message: err.Error()}
	}

	if decoded.Error != nil {
		return mapError(function, decoded.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return &CommunicationError{Call: function, Message: resp.Status}
	}

	if out != nil && len(decoded.Result) > 0 {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return &CommunicationError{Call: function, Message: err.Error()}
		}
	}

	return nil
}

func mapError(function string, e *rpcError) error {
	switch e.Code {
	case "case_locked":
		return &CaseLockedError{CaseID: e.ObjectID, User: e.User}
	case "notification_locked":
		return &NotificationLockedError{NotificationID: e.ObjectID, User: e.User}
	case "notification_missing":
		return &NotificationDoesNotExistError{NotificationID: e.ObjectID}
	case "notification_deleted":
		return &NotificationDeletedError{NotificationID: e.ObjectID}
	case "notification_in_process":
		return &NotificationInProcessWarning{NotificationID: e.ObjectID}
	}
	return &CommunicationError{Call: function, Message: e.Message}
}

// SystemID returns the connected ERP system id.
func (c *RPCClient) SystemID() string { return c.systemID }

// Reset drops and re-establishes the remote connection.
func (c *RPCClient) Reset() error {
	return c.call("connection.reset", nil, nil)
}

// Close terminates the remote connection.
func (c *RPCClient) Close() error {
	return c.call("connection.close", nil, nil)
}

// FindCases searches the dispute management for cases matching the query.
func (c *RPCClient) FindCases(q CaseQuery) ([]CaseRef, error) {
	switch q.Title {
	case "", "%", "%%":
		return nil, fmt.Errorf("invalid case search title %q", q.Title)
	}
	if len(q.CompanyCode) != 4 {
		return nil, fmt.Errorf("incorrect company code %q", q.CompanyCode)
	}
	if q.Amount < 0 {
		return nil, fmt.Errorf("incorrect amount %v", q.Amount)
	}

	var refs []CaseRef
	err := c.call("dms.find_cases", map[string]any{
		"title":        q.Title,
		"company_code": q.CompanyCode,
		"amount":       q.Amount,
		"tolerance":    q.Tolerance,
		"states":       q.States,
	}, &refs)

	return refs, err
}

// CaseAttributes reads the attribute set of a case.
func (c *RPCClient) CaseAttributes(caseGUID string) (CaseAttributes, error) {
	var attrs CaseAttributes
	err := c.call("dms.get_case", map[string]any{"guid": caseGUID}, &attrs)
	if err == nil {
		attrs.GUID = caseGUID
	}
	return attrs, err
}

type caseAttribute struct {
	ID    string `json:"attr_id"`
	Value string `json:"attr_value"`
}

// ModifyCase writes the changed case attributes and commits.
func (c *RPCClient) ModifyCase(caseGUID string, changes CaseChanges) error {
	var attrs []caseAttribute

	add := func(field string, value *string) {
		if value != nil {
			attrs = append(attrs, caseAttribute{ID: caseFields[field], Value: *value})
		}
	}
	add("processor", changes.Processor)
	add("coordinator", changes.Coordinator)
	add("responsible", changes.Responsible)
	add("root_cause", changes.RootCause)
	add("status_sales", changes.StatusSales)
	add("status_ac", changes.StatusAC)
	add("reason", changes.Reason)

	if changes.Status != nil {
		attrs = append(attrs, caseAttribute{
			ID:    caseFields["status"],
			Value: fmt.Sprintf("%d", *changes.Status),
		})
	}
	if changes.DisputedAmount != nil {
		attrs = append(attrs, caseAttribute{
			ID:    caseFields["disputed_amount"],
			Value: fmt.Sprintf("%.2f", *changes.DisputedAmount),
		})
	}

	if len(attrs) == 0 {
		return nil
	}

	return c.call("dms.modify_case", map[string]any{
		"guid":       caseGUID,
		"attributes": attrs,
	}, nil)
}

// Attach uploads the document and creates the binary relation linking it to
// the case.
func (c *RPCClient) Attach(caseGUID, path, attachmentName string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read attachment: %w", err)
	}

	return c.call("dms.attach", map[string]any{
		"guid":    caseGUID,
		"name":    attachmentName,
		"content": base64.StdEncoding.EncodeToString(content),
	}, nil)
}

// FindNotifications looks up notification ids referring to an accounting
// document, filtered to the standard notification type.
func (c *RPCClient) FindNotifications(ref Reference) ([]int64, error) {
	var ids []int64
	err := c.call("qm.find_notifications", map[string]any{
		"reference_kind":    string(ref.Kind),
		"reference_value":   ref.Value,
		"notification_type": NotificationTypeStandard,
	}, &ids)
	return ids, err
}

// ShippingPoint resolves the shipping warehouse of a delivery note.
func (c *RPCClient) ShippingPoint(delivery int64) (string, error) {
	var point string
	err := c.call("qm.shipping_point", map[string]any{"delivery": delivery}, &point)
	return point, err
}

// CreateNotification runs the full creation protocol: notification header,
// claim dispute post, case guid resolution, attribute overwrite, dispute
// task, and the CS task or notification closing depending on the threshold.
func (c *RPCClient) CreateNotification(p CreateParams) (Created, error) {
	over := p.Amount >= p.Threshold

	code, err := ClaimTypeCode(p.Category)
	if err != nil {
		return Created{}, err
	}
	group, subgroup, err := Coding(p.Category, over)
	if err != nil {
		return Created{}, err
	}
	priority, err := Priority(p.CompanyCode, p.ShippingPoint, over)
	if err != nil {
		return Created{}, err
	}

	var created Created
	err = c.call("qm.create_notification", map[string]any{
		"notification_type": NotificationTypeStandard,
		"reference_kind":    string(p.Reference.Kind),
		"reference_value":   p.Reference.Value,
		"reference_no":      p.ReferenceNo,
		"description":       p.Description,
		"category":          code,
		"company_code":      p.CompanyCode,
		"currency":          Currency(p.CompanyCode),
		"amount":            p.Amount,
		"coordinator":       p.Coordinator,
		"priority":          priority,
		"claim_group":       group,
		"claim_coding":      subgroup,
		"shipping_point":    p.ShippingPoint,
	}, &created)
	if err != nil {
		return Created{}, err
	}

	// force the automated reason code and the customer assignment on the
	// generated case before any user touches it
	reason := ReasonAutomated
	changes := CaseChanges{Reason: &reason}
	if p.Branch != "" {
		branch := p.Branch
		attrs := []caseAttribute{
			{ID: caseFields["reason"], Value: reason},
			{ID: caseFields["branch"], Value: branch},
		}
		if err := c.call("dms.modify_case", map[string]any{
			"guid":       created.CaseGUID,
			"attributes": attrs,
		}, nil); err != nil {
			return Created{}, err
		}
	} else if err := c.ModifyCase(created.CaseGUID, changes); err != nil {
		return Created{}, err
	}

	if err := c.runDisputeTask(created); err != nil {
		return Created{}, err
	}

	if over {
		responsible, rerr := Responsible(c.systemID, priority)
		if rerr != nil {
			return Created{}, rerr
		}
		if err := c.call("qm.create_cs_task", map[string]any{
			"notification": created.NotificationID,
			"case_id":      created.CaseID,
			"responsible":  responsible,
		}, nil); err != nil {
			return Created{}, err
		}
	} else if err := c.call("qm.close_notification", map[string]any{
		"notification": created.NotificationID,
	}, nil); err != nil {
		return Created{}, err
	}

	return created, nil
}

// CreateCustomNotification creates a notification through the customized
// transaction used for the bonus, promo and quality categories.
func (c *RPCClient) CreateCustomNotification(p CustomCreateParams) (Created, error) {
	categoryCode, reasonCode, err := CustomCodes(p.Category)
	if err != nil {
		return Created{}, err
	}

	var created Created
	err = c.call("zqm.create_notification", map[string]any{
		"account":       p.Account,
		"reference_no":  p.ReferenceNo,
		"description":   p.Description,
		"category":      categoryCode,
		"reason":        reasonCode,
		"company_code":  p.CompanyCode,
		"currency":      Currency(p.CompanyCode),
		"amount":        p.Amount,
	}, &created)
	if err != nil {
		return Created{}, err
	}

	return created, nil
}

type notificationHeader struct {
	Priority      string `json:"priority"`
	ClaimGroup    string `json:"claim_group"`
	ClaimCoding   string `json:"claim_coding"`
	ShippingPoint string `json:"shipping_point"`
	CompanyCode   string `json:"company_code"`
}

// AddCase posts another claim dispute to an existing notification. The
// notification's organization data and coding carry over; the priority is
// upgraded only when the original one is unused or marks an under-threshold
// claim while the new amount is over the threshold.
func (c *RPCClient) AddCase(notificationID int64, p AddCaseParams) (Created, error) {
	var header notificationHeader
	if err := c.call("qm.get_notification", map[string]any{
		"notification": notificationID,
	}, &header); err != nil {
		return Created{}, err
	}

	// re-activate the notification, tolerating one already in process
	if err := c.call("qm.put_in_process", map[string]any{
		"notification": notificationID,
	}, nil); err != nil {
		var inProcess *NotificationInProcessWarning
		if !errors.As(err, &inProcess) {
			return Created{}, err
		}
		c.log.Warn("notification is already in process", zap.Error(err))
	}

	over := p.Amount >= p.Threshold
	priority := header.Priority

	underThresholdPriorities := map[string]bool{
		PriorityMolBelowThreshold: true,
		PriorityEueBelowThreshold: true,
	}
	if priority == PriorityUnused || (over && underThresholdPriorities[priority]) {
		point := header.ShippingPoint
		if point == "" {
			point = ShippingPointMolsheim
		}
		upgraded, err := Priority(p.CompanyCode, point, over)
		if err != nil {
			return Created{}, err
		}
		priority = upgraded
	}

	var created Created
	err := c.call("qm.post_claim_dispute", map[string]any{
		"notification": notificationID,
		"title":        p.Title,
		"reference_no": p.ReferenceNo,
		"amount":       p.Amount,
		"currency":     Currency(p.CompanyCode),
		"priority":     priority,
		"claim_group":  header.ClaimGroup,
		"claim_coding": header.ClaimCoding,
	}, &created)
	if err != nil {
		return Created{}, err
	}
	created.NotificationID = notificationID

	reason := ReasonAutomated
	if err := c.ModifyCase(created.CaseGUID, CaseChanges{Reason: &reason}); err != nil {
		return Created{}, err
	}

	if err := c.runDisputeTask(created); err != nil {
		return Created{}, err
	}

	if over {
		responsible, rerr := Responsible(c.systemID, capPriority(priority))
		if rerr != nil {
			return Created{}, rerr
		}
		if err := c.call("qm.create_cs_task", map[string]any{
			"notification": created.NotificationID,
			"case_id":      created.CaseID,
			"responsible":  responsible,
		}, nil); err != nil {
			return Created{}, err
		}
	}

	return created, nil
}

// FindAccountingDocuments resolves invoice and delivery pairs from a
// reference document.
func (c *RPCClient) FindAccountingDocuments(ref Reference, account int64) ([]AccountingDoc, error) {
	var docs []AccountingDoc
	err := c.call("va.find_accounting_documents", map[string]any{
		"reference_kind":  string(ref.Kind),
		"reference_value": ref.Value,
		"account":         account,
	}, &docs)
	return docs, err
}

// runDisputeTask creates the dispute task of a fresh case and completes it
// right away.
func (c *RPCClient) runDisputeTask(created Created) error {
	var taskID int64
	if err := c.call("qm.create_dispute_task", map[string]any{
		"notification": created.NotificationID,
		"case_id":      created.CaseID,
	}, &taskID); err != nil {
		return err
	}

	return c.call("qm.complete_task", map[string]any{
		"notification": created.NotificationID,
		"task":         taskID,
	}, nil)
}

// capPriority maps legacy priorities onto the two retail ones the task
// responsible table knows.
func capPriority(priority string) string {
	switch priority {
	case PriorityRetailDE, PriorityRetailAT:
		return priority
	case PriorityEueBelowThreshold:
		return PriorityRetailAT
	}
	return PriorityRetailDE
}
