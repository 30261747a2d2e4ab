package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sangkips/receipt-api/internal/domain/entity"
	"github.com/sangkips/receipt-api/internal/domain/enum"
	"github.com/sangkips/receipt-api/internal/domain/receipting"
	"github.com/sangkips/receipt-api/internal/domain/repository"
	"github.com/sangkips/receipt-api/internal/infrastructure/qrcode"
	"github.com/sangkips/receipt-api/internal/logger"
	"github.com/sangkips/receipt-api/pkg/apperror"
)

var tokyo = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		panic(err)
	}
	return loc
}()

// 2025-03-08 00:30 in Tokyo, still the 7th in UTC
var fixedNow = time.Date(2025, 3, 7, 15, 30, 0, 0, time.UTC)

func testReceiptConfig() ReceiptServiceConfig {
	return ReceiptServiceConfig{
		Location:    tokyo,
		DefaultNote: "ご飲食代",
		MaxRetries:  3,
		QRSize:      128,
		Clock:       func() time.Time { return fixedNow },
		BackOff:     func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	}
}

type receiptFixture struct {
	repo     *mockReceiptRepo
	settings *mockSettingsProvider
	renderer *mockRenderer
	store    *memStore
	svc      *ReceiptService
	owner    uuid.UUID
}

func newReceiptFixture(t *testing.T) *receiptFixture {
	t.Helper()
	f := &receiptFixture{
		repo:     new(mockReceiptRepo),
		settings: new(mockSettingsProvider),
		renderer: new(mockRenderer),
		store:    newMemStore(),
		owner:    uuid.New(),
	}
	f.svc = NewReceiptService(f.repo, f.settings, f.renderer, f.store, qrcode.NewEncoder(), testReceiptConfig(), logger.NewNop())
	t.Cleanup(func() {
		f.repo.AssertExpectations(t)
		f.settings.AssertExpectations(t)
		f.renderer.AssertExpectations(t)
	})
	return f
}

func (f *receiptFixture) expectSettings(s *entity.OwnerSettings) {
	f.settings.On("GetSettings", mock.Anything, f.owner).Return(s, nil)
}

func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, 422, appErr.Code)
	require.Len(t, appErr.Errors, 1)
	assert.Equal(t, field, appErr.Errors[0].Field)
}

func TestIssue_InvalidAmountDoesNoIO(t *testing.T) {
	for _, amount := range []string{"", "abc", "0", "-5", "¥-1,000", "¥"} {
		t.Run(amount, func(t *testing.T) {
			f := newReceiptFixture(t)

			_, err := f.svc.Issue(context.Background(), &IssueReceiptInput{OwnerID: f.owner, Amount: amount})
			assertFieldError(t, err, "amount")

			f.repo.AssertNotCalled(t, "CountByDateKey", mock.Anything, mock.Anything, mock.Anything)
			f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.renderer.AssertNotCalled(t, "RenderReceipt", mock.Anything, mock.Anything)
			f.settings.AssertNotCalled(t, "GetSettings", mock.Anything, mock.Anything)
			assert.Empty(t, f.store.keys())
		})
	}
}

func TestIssue_NumbersSplitsAndStores(t *testing.T) {
	f := newReceiptFixture(t)
	settings := entity.NewOwnerSettings(f.owner, "")
	settings.StoreName = "喫茶 さくら"
	settings.SealKey = "users/x/seal.png"
	f.expectSettings(settings)
	f.settings.On("LoadImage", mock.Anything, "users/x/seal.png").Return([]byte("seal"), nil)

	f.repo.On("CountByDateKey", mock.Anything, f.owner, "20250308").Return(int64(41), nil).Once()
	f.renderer.On("RenderReceipt", mock.Anything, mock.MatchedBy(func(d *receipting.Document) bool {
		return d.No == 42 &&
			d.Split == receipting.TaxSplit{Base: 909, Tax: 91, Total: 1000} &&
			d.IssuedDate == "2025年03月08日" &&
			d.Note == "ご飲食代" &&
			d.Issuer.StoreName == "喫茶 さくら" &&
			string(d.Seal) == "seal" && d.Logo == nil
	})).Return([]byte("%PDF"), nil).Once()
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Receipt")).Return(nil).Once()

	out, err := f.svc.Issue(context.Background(), &IssueReceiptInput{
		OwnerID:       f.owner,
		RecipientName: " 山田商事 ",
		Amount:        "¥1,000",
	})
	require.NoError(t, err)

	r := out.Receipt
	assert.Equal(t, 42, r.No)
	assert.Equal(t, "20250308", r.DateKey)
	assert.Equal(t, "山田商事", r.RecipientName)
	assert.Equal(t, int64(1000), r.TotalAmount)
	assert.Equal(t, int64(909), r.Amount)
	assert.Equal(t, int64(91), r.TaxAmount)
	assert.Equal(t, r.TotalAmount, r.Amount+r.TaxAmount)
	assert.True(t, r.TaxRate.Equal(enum.TaxCategoryStandard.Rate()))
	assert.True(t, strings.HasPrefix(r.ObjectKey, "receipts/"+f.owner.String()+"/receipt_20250308_42_"))
	assert.Equal(t, "https://files.example.com/"+r.ObjectKey, r.DownloadURL)
	assert.True(t, strings.HasPrefix(out.QRCode, "data:image/png;base64,"))
	assert.Equal(t, []string{r.ObjectKey}, f.store.keys())
}

func TestIssue_ReducedRateAndNotePrecedence(t *testing.T) {
	f := newReceiptFixture(t)
	settings := entity.NewOwnerSettings(f.owner, "お品代")
	f.expectSettings(settings)

	f.repo.On("CountByDateKey", mock.Anything, f.owner, "20250308").Return(int64(0), nil)
	f.renderer.On("RenderReceipt", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	out, err := f.svc.Issue(context.Background(), &IssueReceiptInput{
		OwnerID: f.owner, Amount: "1080", TaxCategory: enum.TaxCategoryReduced,
	})
	require.NoError(t, err)
	assert.Equal(t, "お品代", out.Receipt.Note)
	assert.Equal(t, int64(1000), out.Receipt.Amount)
	assert.Equal(t, int64(80), out.Receipt.TaxAmount)
	assert.Equal(t, 1, out.Receipt.No)

	out, err = f.svc.Issue(context.Background(), &IssueReceiptInput{
		OwnerID: f.owner, Amount: "500", Note: "書籍代",
	})
	require.NoError(t, err)
	assert.Equal(t, "書籍代", out.Receipt.Note)
}

func TestIssue_RetriesAfterLosingRace(t *testing.T) {
	f := newReceiptFixture(t)
	f.expectSettings(entity.NewOwnerSettings(f.owner, ""))

	f.repo.On("CountByDateKey", mock.Anything, f.owner, "20250308").Return(int64(0), nil).Once()
	f.repo.On("CountByDateKey", mock.Anything, f.owner, "20250308").Return(int64(1), nil).Once()
	f.renderer.On("RenderReceipt", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil).Twice()
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(r *entity.Receipt) bool { return r.No == 1 })).
		Return(errors.Wrap(repository.ErrDuplicateSequence, "insert")).Once()
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(r *entity.Receipt) bool { return r.No == 2 })).
		Return(nil).Once()

	out, err := f.svc.Issue(context.Background(), &IssueReceiptInput{OwnerID: f.owner, Amount: "1000"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Receipt.No)

	// The losing upload was removed; only the winner remains.
	require.Len(t, f.store.deleted, 1)
	assert.Contains(t, f.store.deleted[0], "receipt_20250308_1_")
	assert.Equal(t, []string{out.Receipt.ObjectKey}, f.store.keys())
}

func TestIssue_GivesUpAfterMaxRetries(t *testing.T) {
	f := newReceiptFixture(t)
	f.expectSettings(entity.NewOwnerSettings(f.owner, ""))

	f.repo.On("CountByDateKey", mock.Anything, f.owner, "20250308").Return(int64(0), nil)
	f.renderer.On("RenderReceipt", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil)
	f.repo.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicateSequence)

	_, err := f.svc.Issue(context.Background(), &IssueReceiptInput{OwnerID: f.owner, Amount: "1000"})
	assert.ErrorIs(t, err, apperror.ErrSequenceExhausted)

	f.repo.AssertNumberOfCalls(t, "Create", 4)
	assert.Len(t, f.store.deleted, 4)
	assert.Empty(t, f.store.keys())
}

func TestIssue_RenderFailureIsNotRetried(t *testing.T) {
	f := newReceiptFixture(t)
	f.expectSettings(entity.NewOwnerSettings(f.owner, ""))

	f.repo.On("CountByDateKey", mock.Anything, f.owner, "20250308").Return(int64(0), nil).Once()
	f.renderer.On("RenderReceipt", mock.Anything, mock.Anything).Return(nil, errors.New("typst: font not found")).Once()

	_, err := f.svc.Issue(context.Background(), &IssueReceiptInput{OwnerID: f.owner, Amount: "1000"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to render receipt")
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, f.store.keys())
}

func TestIssue_SequentialIssuesAreNumberedFromOne(t *testing.T) {
	owner := uuid.New()
	settings := new(mockSettingsProvider)
	settings.On("GetSettings", mock.Anything, owner).Return(entity.NewOwnerSettings(owner, ""), nil)
	repo := &memReceipts{}
	svc := NewReceiptService(repo, settings, &stubRenderer{}, newMemStore(), qrcode.NewEncoder(), testReceiptConfig(), logger.NewNop())

	for want := 1; want <= 3; want++ {
		out, err := svc.Issue(context.Background(), &IssueReceiptInput{OwnerID: owner, Amount: "1000"})
		require.NoError(t, err)
		assert.Equal(t, want, out.Receipt.No)
	}
}

func TestIssue_ConcurrentIssuesGetDistinctNumbers(t *testing.T) {
	owner := uuid.New()
	settings := new(mockSettingsProvider)
	settings.On("GetSettings", mock.Anything, owner).Return(entity.NewOwnerSettings(owner, ""), nil)
	repo := &memReceipts{}
	store := newMemStore()

	cfg := testReceiptConfig()
	const n = 8
	cfg.MaxRetries = n
	svc := NewReceiptService(repo, settings, &stubRenderer{}, store, qrcode.NewEncoder(), cfg, logger.NewNop())

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Issue(context.Background(), &IssueReceiptInput{OwnerID: owner, Amount: "1000"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	nos := make([]int, 0, n)
	for _, r := range repo.rows {
		nos = append(nos, r.No)
	}
	sort.Ints(nos)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, nos)
	assert.Len(t, store.keys(), n)
}

func TestIssue_OtherDayStartsAgain(t *testing.T) {
	owner := uuid.New()
	settings := new(mockSettingsProvider)
	settings.On("GetSettings", mock.Anything, owner).Return(entity.NewOwnerSettings(owner, ""), nil)
	repo := &memReceipts{}

	now := fixedNow
	cfg := testReceiptConfig()
	cfg.Clock = func() time.Time { return now }
	svc := NewReceiptService(repo, settings, &stubRenderer{}, newMemStore(), qrcode.NewEncoder(), cfg, logger.NewNop())

	out, err := svc.Issue(context.Background(), &IssueReceiptInput{OwnerID: owner, Amount: "1000"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Receipt.No)

	now = now.Add(24 * time.Hour)
	out, err = svc.Issue(context.Background(), &IssueReceiptInput{OwnerID: owner, Amount: "1000"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Receipt.No)
	assert.Equal(t, "20250309", out.Receipt.DateKey)
}

func TestGet_OtherOwnerIsNotFound(t *testing.T) {
	f := newReceiptFixture(t)
	id := uuid.New()
	f.repo.On("GetByID", mock.Anything, f.owner, id).Return(nil, nil).Once()

	_, err := f.svc.Get(context.Background(), f.owner, id)
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 404, appErr.Code)
}

func TestDownloadURLAndQRCode(t *testing.T) {
	f := newReceiptFixture(t)
	r := &entity.Receipt{ID: uuid.New(), OwnerID: f.owner, ObjectKey: "receipts/o/r.pdf", DownloadURL: "https://old"}
	f.repo.On("GetByID", mock.Anything, f.owner, r.ID).Return(r, nil)

	url, err := f.svc.DownloadURL(context.Background(), f.owner, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/receipts/o/r.pdf?signed=1", url)

	png, err := f.svc.QRCode(context.Background(), f.owner, r.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestGetAndList_ReturnCurrentDownloadURL(t *testing.T) {
	f := newReceiptFixture(t)
	r := entity.Receipt{ID: uuid.New(), OwnerID: f.owner, ObjectKey: "receipts/o/r.pdf", DownloadURL: "https://expired"}
	f.repo.On("GetByID", mock.Anything, f.owner, r.ID).Return(&r, nil).Once()
	f.repo.On("List", mock.Anything, f.owner, repository.ReceiptFilter{}, mock.Anything).
		Return([]entity.Receipt{r}, int64(1), nil).Once()

	got, err := f.svc.Get(context.Background(), f.owner, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/receipts/o/r.pdf?signed=1", got.DownloadURL)

	page, err := f.svc.List(context.Background(), &ListReceiptsInput{OwnerID: f.owner})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "https://files.example.com/receipts/o/r.pdf?signed=1", page.Items[0].DownloadURL)
}

func TestList_RejectsMalformedDateKey(t *testing.T) {
	f := newReceiptFixture(t)
	_, err := f.svc.List(context.Background(), &ListReceiptsInput{OwnerID: f.owner, DateKey: "2025-03-08"})
	assertFieldError(t, err, "date_key")
}
