package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"privlend-backend/internal/adapter/verifier"
	"privlend-backend/internal/domain/application"
	"privlend-backend/internal/domain/fault"
	"privlend-backend/internal/domain/ledger"
	"privlend-backend/internal/domain/offer"
	"privlend-backend/internal/testutil/ledgermock"
	"privlend-backend/internal/testutil/proofmock"
	"privlend-backend/internal/usecase/commitment"
	"privlend-backend/internal/usecase/disclosure"
	"privlend-backend/internal/usecase/discovery"
	"privlend-backend/internal/usecase/lending"
	"privlend-backend/internal/usecase/proofgate"
	"privlend-backend/pkg/field"
	"privlend-backend/pkg/money"
)

// -------- helpers --------

func newEchoWithValidator() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func mustJSON(v any) *bytes.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

// newHandler wires real usecases over a function-backed ledger mock.
func newHandler(led *ledgermock.Ledger, ver *verifier.Static) *Handler {
	gate := proofgate.NewUsecase(proofmock.New(), ver, time.Second)
	lend := lending.NewUsecase(led, gate)
	return NewHandler(
		lend,
		gate,
		discovery.NewIndex(led, time.Second),
		disclosure.NewUsecase(led),
		commitment.NewService(),
	)
}

func openOffer(loanID uint64) *offer.Offer {
	return &offer.Offer{
		LoanID:              loanID,
		Lender:              "lender-1",
		AmountPerSlot:       money.Units(50),
		TotalSlots:          2,
		InterestBps:         500,
		RepaymentPeriodSecs: 600,
		MinScore:            100,
		Status:              offer.StatusOpen,
		CreatedAt:           time.Now().UTC(),
	}
}

func doRequest(e *echo.Echo, method, target, callerAddr string, body *bytes.Reader) *httptest.ResponseRecorder {
	var req *stdhttp.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if callerAddr != "" {
		req.Header.Set(callerHeader, callerAddr)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// -------- tests --------

func TestCreateOffer_Success(t *testing.T) {
	e := newEchoWithValidator()
	led := &ledgermock.Ledger{
		CreateOfferFn: func(ctx context.Context, lender string, terms ledger.Terms) (uint64, error) {
			if lender != "lender-1" {
				t.Fatalf("lender = %s", lender)
			}
			if terms.MinScore != 100 || terms.RepaymentPeriod != 600*time.Second {
				t.Fatalf("terms: %+v", terms)
			}
			return 7, nil
		},
		GetOfferFn: func(ctx context.Context, loanID uint64) (*offer.Offer, error) {
			return openOffer(loanID), nil
		},
	}
	newHandler(led, verifier.NewStatic()).Register(e)

	rec := doRequest(e, stdhttp.MethodPost, "/offers", "lender-1", mustJSON(map[string]any{
		"amount_per_slot":       money.Units(50).String(),
		"total_slots":           2,
		"interest_bps":          500,
		"repayment_period_secs": 600,
		"min_score":             100,
	}))
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var got lending.OfferDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if got.LoanID != 7 || got.Status != "open" {
		t.Fatalf("dto: %+v", got)
	}
}

func TestCreateOffer_MissingCaller(t *testing.T) {
	e := newEchoWithValidator()
	newHandler(&ledgermock.Ledger{}, verifier.NewStatic()).Register(e)

	rec := doRequest(e, stdhttp.MethodPost, "/offers", "", mustJSON(map[string]any{
		"amount_per_slot":       "1",
		"total_slots":           1,
		"repayment_period_secs": 60,
	}))
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateOffer_ValidationFailure(t *testing.T) {
	e := newEchoWithValidator()
	newHandler(&ledgermock.Ledger{}, verifier.NewStatic()).Register(e)

	// total_slots missing, interest above 100%
	rec := doRequest(e, stdhttp.MethodPost, "/offers", "lender-1", mustJSON(map[string]any{
		"amount_per_slot":       "1",
		"interest_bps":          20000,
		"repayment_period_secs": 60,
	}))
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body %s", rec.Code, rec.Body)
	}
	var got errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Details) == 0 {
		t.Fatalf("expected field details, got %+v", got)
	}
}

func TestGetOffer_NotFound(t *testing.T) {
	e := newEchoWithValidator()
	led := &ledgermock.Ledger{
		GetOfferFn: func(ctx context.Context, loanID uint64) (*offer.Offer, error) {
			return nil, fault.New(fault.NotFound, "loan %d", loanID)
		},
	}
	newHandler(led, verifier.NewStatic()).Register(e)

	rec := doRequest(e, stdhttp.MethodGet, "/offers/99", "", nil)
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSubmitApplication_Success(t *testing.T) {
	identity := field.FromUint64(41).Hex()
	activity := field.FromUint64(42).Hex()

	ver := verifier.NewStatic()
	ver.Attest("proof-1", activity, 150)

	var submitted bool
	led := &ledgermock.Ledger{
		GetOfferFn: func(ctx context.Context, loanID uint64) (*offer.Offer, error) {
			return openOffer(loanID), nil
		},
		SubmitApplicationFn: func(ctx context.Context, loanID uint64, ic, ph, addr string) error {
			submitted = true
			if ic != identity || ph != "proof-1" || addr != "borrower-wallet" {
				t.Fatalf("submit args: %s %s %s", ic, ph, addr)
			}
			return nil
		},
	}
	e := newEchoWithValidator()
	h := newHandler(led, ver)
	h.Register(e)

	// proof must be registered before the application references it
	if _, err := h.gate.Register(context.Background(), proofgate.RegisterInput{
		ProofHash:          "proof-1",
		ActivityCommitment: activity,
	}); err != nil {
		t.Fatal(err)
	}

	rec := doRequest(e, stdhttp.MethodPost, "/offers/3/applications", "", mustJSON(map[string]any{
		"identity_commitment": identity,
		"proof_hash":          "proof-1",
		"borrower_address":    "borrower-wallet",
	}))
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if !submitted {
		t.Fatal("ledger submit never reached")
	}
}

func TestSubmitApplication_UnregisteredProof(t *testing.T) {
	led := &ledgermock.Ledger{
		GetOfferFn: func(ctx context.Context, loanID uint64) (*offer.Offer, error) {
			return openOffer(loanID), nil
		},
	}
	e := newEchoWithValidator()
	newHandler(led, verifier.NewStatic()).Register(e)

	rec := doRequest(e, stdhttp.MethodPost, "/offers/3/applications", "", mustJSON(map[string]any{
		"identity_commitment": field.FromUint64(41).Hex(),
		"proof_hash":          "never-registered",
		"borrower_address":    "borrower-wallet",
	}))
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body %s", rec.Code, rec.Body)
	}
	var got errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Code != string(fault.ProofNotRegistered) {
		t.Fatalf("code = %s", got.Code)
	}
}

func TestSubmitApplication_CommitmentNotHexField(t *testing.T) {
	e := newEchoWithValidator()
	newHandler(&ledgermock.Ledger{}, verifier.NewStatic()).Register(e)

	rec := doRequest(e, stdhttp.MethodPost, "/offers/3/applications", "", mustJSON(map[string]any{
		"identity_commitment": "not-hex-at-all",
		"proof_hash":          "proof-1",
		"borrower_address":    "borrower-wallet",
	}))
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestRepay_TransientErrorCarriesRetryAfter(t *testing.T) {
	led := &ledgermock.Ledger{
		RepayFn: func(ctx context.Context, caller string, loanID uint64, ic string) (money.Amount, error) {
			return money.Amount{}, fault.New(fault.LedgerUnavailable, "connection reset")
		},
	}
	e := newEchoWithValidator()
	newHandler(led, verifier.NewStatic()).Register(e)

	rec := doRequest(e, stdhttp.MethodPost, "/offers/3/applications/abc123/repay", "borrower-wallet", nil)
	if rec.Code != stdhttp.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After on a transient error")
	}
	var got errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if !got.Retryable {
		t.Fatal("transient errors must be flagged retryable")
	}
}

func TestRevealIdentity_NotYetOverdue(t *testing.T) {
	deadline := time.Now().UTC().Add(time.Hour)
	approvedAt := time.Now().UTC()
	led := &ledgermock.Ledger{
		GetOfferFn: func(ctx context.Context, loanID uint64) (*offer.Offer, error) {
			return openOffer(loanID), nil
		},
		GetApplicationFn: func(ctx context.Context, loanID uint64, ic string) (*application.Application, error) {
			return &application.Application{
				LoanID:             loanID,
				IdentityCommitment: ic,
				Status:             application.StatusApproved,
				ApprovedAt:         &approvedAt,
				RepaymentDeadline:  &deadline,
			}, nil
		},
	}
	e := newEchoWithValidator()
	newHandler(led, verifier.NewStatic()).Register(e)

	rec := doRequest(e, stdhttp.MethodPost, "/offers/3/applications/abc123/reveal", "lender-1", nil)
	if rec.Code != stdhttp.StatusConflict {
		t.Fatalf("status = %d, want 409, body %s", rec.Code, rec.Body)
	}
	var got errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Code != string(fault.NotYetOverdue) {
		t.Fatalf("code = %s", got.Code)
	}
}

func TestRevealIdentity_WrongCallerForbidden(t *testing.T) {
	led := &ledgermock.Ledger{
		GetOfferFn: func(ctx context.Context, loanID uint64) (*offer.Offer, error) {
			return openOffer(loanID), nil
		},
	}
	e := newEchoWithValidator()
	newHandler(led, verifier.NewStatic()).Register(e)

	rec := doRequest(e, stdhttp.MethodPost, "/offers/3/applications/abc123/reveal", "someone-else", nil)
	if rec.Code != stdhttp.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRegisterProof_RoundTrip(t *testing.T) {
	activity := field.FromUint64(42).Hex()
	e := newEchoWithValidator()
	newHandler(&ledgermock.Ledger{}, verifier.NewStatic()).Register(e)

	rec := doRequest(e, stdhttp.MethodPost, "/proofs", "", mustJSON(map[string]any{
		"proof_hash":          "proof-9",
		"activity_commitment": activity,
	}))
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var got proofgate.ReceiptDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ProofHash != "proof-9" || got.ActivityCommitment != activity {
		t.Fatalf("receipt: %+v", got)
	}
}

func TestListOwnApplications_SeedsLenderView(t *testing.T) {
	identity := field.FromUint64(77).Hex()
	app := &application.Application{
		LoanID:             1,
		IdentityCommitment: identity,
		ProofHash:          "proof-1",
		Status:             application.StatusPending,
		AppliedAt:          time.Now().UTC(),
	}
	led := &ledgermock.Ledger{
		MaxLoanIDFn: func(ctx context.Context) (uint64, error) { return 1, nil },
		GetApplicationFn: func(ctx context.Context, loanID uint64, ic string) (*application.Application, error) {
			if loanID == 1 && ic == identity {
				return app, nil
			}
			return nil, fault.New(fault.NotFound, "no application")
		},
	}
	e := newEchoWithValidator()
	newHandler(led, verifier.NewStatic()).Register(e)

	// lender sees nothing before the owner self-discovers
	rec := doRequest(e, stdhttp.MethodGet, "/offers/1/applications", "lender-1", nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var before []lending.ApplicationDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &before); err != nil {
		t.Fatal(err)
	}
	if len(before) != 0 {
		t.Fatalf("lender view before self-discovery: %+v", before)
	}

	rec = doRequest(e, stdhttp.MethodGet, "/borrowers/"+identity+"/applications", "", nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var own []lending.ApplicationDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &own); err != nil {
		t.Fatal(err)
	}
	if len(own) != 1 || own[0].LoanID != 1 {
		t.Fatalf("own applications: %+v", own)
	}

	rec = doRequest(e, stdhttp.MethodGet, "/offers/1/applications", "lender-1", nil)
	var after []lending.ApplicationDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &after); err != nil {
		t.Fatal(err)
	}
	if len(after) != 1 || after[0].IdentityCommitment != identity {
		t.Fatalf("lender view after self-discovery: %+v", after)
	}
}

func TestDeriveCommitments_Deterministic(t *testing.T) {
	e := newEchoWithValidator()
	newHandler(&ledgermock.Ledger{}, verifier.NewStatic()).Register(e)

	body := map[string]any{
		"owner_secret":      "123456789",
		"private_attribute": "150",
		"salt":              "42",
	}
	rec1 := doRequest(e, stdhttp.MethodPost, "/commitments/derive", "", mustJSON(body))
	rec2 := doRequest(e, stdhttp.MethodPost, "/commitments/derive", "", mustJSON(body))
	if rec1.Code != stdhttp.StatusOK || rec2.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d / %d", rec1.Code, rec2.Code)
	}
	var a, b deriveCommitmentsResp
	if err := json.Unmarshal(rec1.Body.Bytes(), &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(rec2.Body.Bytes(), &b); err != nil {
		t.Fatal(err)
	}
	if a.IdentityCommitment != b.IdentityCommitment || a.ActivityCommitment != b.ActivityCommitment {
		t.Fatalf("derivation not deterministic: %+v vs %+v", a, b)
	}
	if len(a.IdentityCommitment) != 64 {
		t.Fatalf("commitment hex length = %d", len(a.IdentityCommitment))
	}
}

func TestDeriveCommitments_SecretOutOfRange(t *testing.T) {
	e := newEchoWithValidator()
	newHandler(&ledgermock.Ledger{}, verifier.NewStatic()).Register(e)

	over := field.Modulus().String()
	rec := doRequest(e, stdhttp.MethodPost, "/commitments/derive", "", mustJSON(map[string]any{
		"owner_secret": over,
	}))
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body)
	}
	var got errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Code != string(fault.OutOfFieldRange) {
		t.Fatalf("code = %s", got.Code)
	}
}
