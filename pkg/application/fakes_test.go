package application

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/loanflow/loanflow/pkg/model"
	"github.com/loanflow/loanflow/pkg/store"
)

type fakeRepository struct {
	mu     sync.Mutex
	nextID int64
	apps   map[int64]model.Application
	saves  int
	// conflict makes the next Save report a lost optimistic race.
	conflict bool
}

func newFakeRepository(apps ...model.Application) *fakeRepository {
	repo := &fakeRepository{nextID: 100, apps: make(map[int64]model.Application)}
	for _, app := range apps {
		repo.apps[app.ID] = app
	}
	return repo
}

func (r *fakeRepository) Save(_ context.Context, app *model.Application) (*model.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflict {
		r.conflict = false
		return nil, store.ErrConcurrentUpdate
	}
	r.saves++
	copied := *app
	if copied.ID == 0 {
		r.nextID++
		copied.ID = r.nextID
	} else {
		copied.Version++
	}
	r.apps[copied.ID] = copied
	out := copied
	return &out, nil
}

func (r *fakeRepository) FindByID(_ context.Context, id int64) (*model.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &app, nil
}

func (r *fakeRepository) ListByStatus(_ context.Context, status model.ApplicationStatus, limit, offset int) ([]model.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Application
	for _, app := range r.apps {
		if app.Status == status {
			out = append(out, app)
		}
	}
	return out, nil
}

func (r *fakeRepository) get(id int64) model.Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.apps[id]
}

type fakeLoanTypes map[int64]model.LoanType

func (f fakeLoanTypes) FindByID(_ context.Context, id int64) (*model.LoanType, error) {
	loanType, ok := f[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &loanType, nil
}

var errIdentityDown = errors.New("identity service unavailable")

type fakeUsers struct {
	users  map[int64]model.User
	emails map[string]bool
	err    error
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int64, _ string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return &user, nil
}

func (f *fakeUsers) ExistsByEmail(_ context.Context, email, _ string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.emails[email], nil
}

type capacityCall struct {
	app      model.Application
	loanType model.LoanType
	user     model.User
}

type fakeCapacity struct {
	mu    sync.Mutex
	calls []capacityCall
	err   error
}

func (f *fakeCapacity) RequestEvaluation(_ context.Context, app *model.Application, loanType *model.LoanType, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, capacityCall{app: *app, loanType: *loanType, user: *user})
	return nil
}

type fakeDecisions struct {
	events []model.ApplicationDecisionEvent
	err    error
}

func (f *fakeDecisions) PublishDecision(_ context.Context, event model.ApplicationDecisionEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type fakeReports struct {
	events []model.ReportEvent
	err    error
}

func (f *fakeReports) PublishApproved(_ context.Context, event model.ReportEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

const (
	requesterID = int64(7)
	autoLoanID  = int64(1)
	manualLoan  = int64(2)
)

type fixture struct {
	apps      *fakeRepository
	users     *fakeUsers
	capacity  *fakeCapacity
	decisions *fakeDecisions
	reports   *fakeReports
}

func newFixture(apps ...model.Application) *fixture {
	return &fixture{
		apps: newFakeRepository(apps...),
		users: &fakeUsers{
			users: map[int64]model.User{
				requesterID: {ID: requesterID, Name: "Ana", Email: "ana@example.com", BaseSalary: decimal.NewFromInt(4000000)},
			},
			emails: map[string]bool{"ana@example.com": true},
		},
		capacity:  &fakeCapacity{},
		decisions: &fakeDecisions{},
		reports:   &fakeReports{},
	}
}

func (f *fixture) loanTypes() fakeLoanTypes {
	return fakeLoanTypes{
		autoLoanID: {
			ID:                  autoLoanID,
			Name:                "free investment",
			MinimumAmount:       decimal.NewFromInt(1000),
			MaximumAmount:       decimal.NewFromInt(50000),
			InterestRate:        decimal.RequireFromString("1.5"),
			AutomaticValidation: true,
		},
		manualLoan: {
			ID:            manualLoan,
			Name:          "mortgage",
			MinimumAmount: decimal.NewFromInt(10000),
			MaximumAmount: decimal.NewFromInt(900000),
			InterestRate:  decimal.RequireFromString("0.012"),
		},
	}
}

func pendingApplication(id int64, status model.ApplicationStatus) model.Application {
	return model.Application{
		ID:         id,
		Amount:     decimal.NewFromInt(5000),
		Term:       12,
		Email:      "ana@example.com",
		UserID:     requesterID,
		LoanTypeID: autoLoanID,
		Status:     status,
	}
}
