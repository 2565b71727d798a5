package factoring_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/operaciones-factoring/internal/domain/entity"
	"github.com/jhoicas/operaciones-factoring/internal/domain/factoring"
)

// ── Montos y vencimientos ──────────────────────────────────────────────────

func TestNetAmount_DescuentaDetraccion(t *testing.T) {
	cases := []struct {
		total, percent, want string
	}{
		{"1000.00", "0", "1000"},
		{"1000.00", "12", "880"},
		{"1180.50", "10", "1062.45"},
		{"333.33", "4", "319.9968"},
		{"500", "100", "0"},
	}
	for _, tc := range cases {
		got := factoring.NetAmount(decimal.RequireFromString(tc.total), decimal.RequireFromString(tc.percent))
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)),
			"neto de %s con %s%% debe ser %s, fue %s", tc.total, tc.percent, tc.want, got)
	}
}

func TestNetAmount_NuncaSuperaElTotal(t *testing.T) {
	total := decimal.RequireFromString("2599.99")
	for p := 0; p <= 100; p++ {
		net := factoring.NetAmount(total, decimal.NewFromInt(int64(p)))
		assert.True(t, net.LessThanOrEqual(total))
		assert.False(t, net.IsNegative())
	}
}

func TestValidateDetraction(t *testing.T) {
	assert.NoError(t, factoring.ValidateDetraction(decimal.Zero))
	assert.NoError(t, factoring.ValidateDetraction(decimal.NewFromInt(100)))
	assert.Error(t, factoring.ValidateDetraction(decimal.NewFromInt(-1)))
	assert.Error(t, factoring.ValidateDetraction(decimal.RequireFromString("100.01")))
}

func date(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return &d
}

func TestResolveDueDate(t *testing.T) {
	issue := date(t, "2024-01-10")

	got := factoring.ResolveDueDate(nil, issue, "Contado")
	require.NotNil(t, got)
	assert.Equal(t, "2024-03-10", got.Format("2006-01-02"), "contado suma 60 días a la emisión")

	got = factoring.ResolveDueDate(nil, issue, "credito")
	require.NotNil(t, got)
	assert.Equal(t, "2024-01-10", got.Format("2006-01-02"), "sin fecha explícita vence en la emisión")

	got = factoring.ResolveDueDate(date(t, "2024-02-29"), issue, "contado")
	require.NotNil(t, got)
	assert.Equal(t, "2024-02-29", got.Format("2006-01-02"), "la fecha explícita tiene prioridad")

	assert.Nil(t, factoring.ResolveDueDate(nil, nil, "contado"))
}

// ── Conciliación ───────────────────────────────────────────────────────────

func okBatch(index int, processID string, entries ...entity.ValidationEntry) entity.BatchResult {
	return entity.BatchResult{
		Index:      index,
		Submission: entity.SubmissionOutcome{ProcessID: processID},
		Status: &entity.StatusOutcome{
			Payload: entity.ValidationStatus{ProcessID: processID, Entries: entries},
		},
	}
}

func TestReconcile_SoloLotesConEstadoExitoso(t *testing.T) {
	failed := entity.BatchResult{
		Index:      1,
		Submission: entity.SubmissionOutcome{ProcessID: "76"},
		Status:     &entity.StatusOutcome{Failure: "timeout"},
	}
	ok := okBatch(2, "77", entity.ValidationEntry{Series: "F001", Numeration: "123", Message: "OK"})

	mapping := factoring.Reconcile([]entity.BatchResult{failed, ok})

	require.Len(t, mapping, 1)
	r, found := mapping[entity.NewReconciliationKey("F001", "123")]
	require.True(t, found)
	assert.Equal(t, "OK", r.Message)
	assert.Equal(t, "77", r.ProcessID)
	for k := range mapping {
		assert.Equal(t, "F001-123", k.String())
	}
}

func TestReconcile_IgnoraEnviosFallidosYOmitidos(t *testing.T) {
	results := []entity.BatchResult{
		entity.SkippedBatch("sin documentos"),
		{Index: 1, Submission: entity.SubmissionOutcome{Failure: "HTTP 500"}},
	}
	assert.Empty(t, factoring.Reconcile(results))
}

func TestReconcile_UltimaEscrituraGana(t *testing.T) {
	first := okBatch(1, "10", entity.ValidationEntry{Series: "f001", Numeration: "0007", Message: "PRIMERO"})
	second := okBatch(2, "11", entity.ValidationEntry{Series: "F001", Numeration: "7", Message: "SEGUNDO"})

	mapping := factoring.Reconcile([]entity.BatchResult{first, second})

	require.Len(t, mapping, 1)
	r := mapping[entity.NewReconciliationKey("F001", "7")]
	assert.Equal(t, "SEGUNDO", r.Message)
	assert.Equal(t, "11", r.ProcessID)
}

func TestMergeResults_EnriqueceSoloLasConciliadas(t *testing.T) {
	invoices := []entity.Invoice{
		{DocumentID: "F001-00000123"},
		{DocumentID: "F001-00000124"},
		{DocumentID: "SINGUION"},
	}
	mapping := map[entity.ReconciliationKey]entity.ValidationResult{
		entity.NewReconciliationKey("F001", "123"): {Message: "Bloqueada", ProcessID: "77"},
	}

	n := factoring.MergeResults(invoices, mapping)

	assert.Equal(t, 1, n)
	require.NotNil(t, invoices[0].ValidationMessage)
	assert.Equal(t, "Bloqueada", *invoices[0].ValidationMessage)
	assert.Equal(t, "77", *invoices[0].ValidationProcessID)
	assert.Nil(t, invoices[1].ValidationMessage, "sin resultado queda sin enriquecer")
	assert.Nil(t, invoices[2].ValidationProcessID)
}

// ── Asignación de ids ──────────────────────────────────────────────────────

type memCounter struct {
	mu   sync.Mutex
	last map[string]int
}

func (c *memCounter) Next(_ context.Context, day time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := day.Format("20060102")
	c.last[k]++
	return c.last[k], nil
}

func TestAllocator_FormatoYReinicioDiario(t *testing.T) {
	alloc := factoring.NewAllocator(&memCounter{last: map[string]int{}})
	ctx := context.Background()
	day1 := time.Date(2024, 5, 3, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2024, 5, 4, 0, 1, 0, 0, time.UTC)

	id, err := alloc.Allocate(ctx, day1)
	require.NoError(t, err)
	assert.Equal(t, entity.OperationID("OP-20240503-001"), id)

	id, err = alloc.Allocate(ctx, day1)
	require.NoError(t, err)
	assert.Equal(t, entity.OperationID("OP-20240503-002"), id)

	id, err = alloc.Allocate(ctx, day2)
	require.NoError(t, err)
	assert.Equal(t, entity.OperationID("OP-20240504-001"), id, "el contador se reinicia con el día")
}

func TestAllocator_ConcurrenciaSinDuplicadosNiHuecos(t *testing.T) {
	const n = 50
	alloc := factoring.NewAllocator(&memCounter{last: map[string]int{}})
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := alloc.Allocate(context.Background(), now)
			assert.NoError(t, err)
			ids[i] = string(id)
		}(i)
	}
	wg.Wait()

	sort.Strings(ids)
	for i, id := range ids {
		assert.Equal(t, fmt.Sprintf("OP-20240601-%03d", i+1), id)
	}
}

type failingCounter struct{}

func (failingCounter) Next(context.Context, time.Time) (int, error) {
	return 0, errors.New("db caída")
}

func TestAllocator_PropagaErrorDelContador(t *testing.T) {
	_, err := factoring.NewAllocator(failingCounter{}).Allocate(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db caída")
}

func TestParseOperationID(t *testing.T) {
	day, seq, err := entity.ParseOperationID("OP-20240601-1042")
	require.NoError(t, err)
	assert.Equal(t, 1042, seq)
	assert.Equal(t, "2024-06-01", day.Format("2006-01-02"))

	_, _, err = entity.ParseOperationID("OP-2024-001")
	assert.Error(t, err)
	_, _, err = entity.ParseOperationID("XX-20240601-001")
	assert.Error(t, err)
}

func TestExecutiveName(t *testing.T) {
	assert.Equal(t, "Kevin Tupac", factoring.ExecutiveName("kevin.tupac@capitalexpress.cl"))
	assert.Equal(t, "Ana", factoring.ExecutiveName("ANA@x.pe"))
	assert.Equal(t, "", factoring.ExecutiveName(""))
}

// ── Sumatorias ─────────────────────────────────────────────────────────────

func TestSummarizeByCurrency_YTotalDeOperacion(t *testing.T) {
	invoices := []entity.Invoice{
		{Currency: "USD", TotalAmount: decimal.NewFromInt(100), NetAmount: decimal.NewFromInt(88)},
		{Currency: "PEN", TotalAmount: decimal.NewFromInt(50), NetAmount: decimal.NewFromInt(50)},
		{Currency: "USD", TotalAmount: decimal.RequireFromString("20.5"), NetAmount: decimal.RequireFromString("20.5")},
	}

	summary := factoring.SummarizeByCurrency(invoices)

	require.Len(t, summary, 2)
	assert.Equal(t, "PEN", summary[0].Currency, "ordenado por moneda")
	assert.Equal(t, "USD", summary[1].Currency)
	assert.True(t, summary[1].Total.Equal(decimal.RequireFromString("120.5")))
	assert.True(t, summary[1].Net.Equal(decimal.RequireFromString("108.5")))
	assert.Equal(t, 2, summary[1].Count)

	assert.True(t, factoring.OperationTotal(invoices).Equal(decimal.RequireFromString("120.5")),
		"el total de la operación usa la moneda de la primera factura")
	assert.True(t, factoring.OperationTotal(nil).IsZero())

	all := decimal.Zero
	for _, inv := range invoices {
		all = all.Add(inv.TotalAmount)
	}
	assert.True(t, factoring.OperationTotal(invoices).LessThan(all),
		"en operaciones multimoneda el total queda por debajo de la suma de todas las facturas")
}

func TestDebtors_SinRepetirYEnOrden(t *testing.T) {
	invoices := []entity.Invoice{
		{DebtorRUC: "20111111111", DebtorName: "Uno SAC"},
		{DebtorRUC: "20222222222", DebtorName: "Dos SA"},
		{DebtorRUC: "20111111111", DebtorName: "Uno SAC"},
	}
	got := factoring.Debtors(invoices)
	require.Len(t, got, 2)
	assert.Equal(t, "Uno SAC", got[0].Name)
	assert.Equal(t, "20222222222", got[1].RUC)
	assert.Equal(t, "", factoring.ClientName(nil))
}

func TestFormatAmount(t *testing.T) {
	cases := map[string]string{
		"0":          "0.00",
		"12.5":       "12.50",
		"999.999":    "1,000.00",
		"1234.5":     "1,234.50",
		"1234567.89": "1,234,567.89",
		"-2500":      "-2,500.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, factoring.FormatAmount(decimal.RequireFromString(in)), "formato de %s", in)
	}
	assert.Equal(t, "USD 20.00", factoring.FormatMoney("USD", decimal.NewFromInt(20)))
}
