package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/battrelay/battrelay/core/model"
)

func newTestEstimator(t *testing.T) *Estimator {
	t.Helper()
	est, err := New(Config{CapacityAh: 100, VMin: 20.8, VMax: 26.5})
	require.NoError(t, err)
	return est
}

func TestNewRejectsInvertedVoltageRange(t *testing.T) {
	_, err := New(Config{CapacityAh: 100, VMin: 26.5, VMax: 26.5})
	assert.Error(t, err)
	_, err = New(Config{CapacityAh: 100, VMin: 26.5, VMax: 20.8})
	assert.Error(t, err)
}

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	_, err := New(Config{CapacityAh: 0, VMin: 20.8, VMax: 26.5})
	assert.Error(t, err)
}

func TestEstimateIsPure(t *testing.T) {
	est := newTestEstimator(t)
	a := est.Estimate(24.0, 1.5)
	b := est.Estimate(24.0, 1.5)
	a.Timestamp = b.Timestamp
	assert.Equal(t, a, b)
}

func TestSOCClamping(t *testing.T) {
	est := newTestEstimator(t)
	cases := []struct {
		name    string
		voltage float64
		want    float64
	}{
		{"below range", 18.0, 0},
		{"at minimum", 20.8, 0},
		{"at maximum", 26.5, 100},
		{"above range", 30.0, 100},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			st := est.Estimate(c.voltage, 0)
			assert.Equal(t, c.want, st.SOC)
		})
	}
}

func TestSOCAlwaysInRange(t *testing.T) {
	est := newTestEstimator(t)
	for v := 0.0; v <= 40; v += 0.5 {
		st := est.Estimate(v, 0)
		if st.SOC < 0 || st.SOC > 100 {
			t.Fatalf("soc %v out of range for voltage %v", st.SOC, v)
		}
	}
}

func TestModeClassification(t *testing.T) {
	est := newTestEstimator(t)
	cases := []struct {
		current float64
		want    model.Mode
	}{
		{-2.0, model.ModeCharging},
		{-0.11, model.ModeCharging},
		{-0.1, model.ModeResting},
		{0, model.ModeResting},
		{0.1, model.ModeResting},
		{0.11, model.ModeDischarging},
		{2.0, model.ModeDischarging},
	}
	for _, c := range cases {
		st := est.Estimate(24.0, c.current)
		if st.Mode != c.want {
			t.Errorf("current %v: expected %v got %v", c.current, c.want, st.Mode)
		}
	}
}

func TestTimeFieldApplicability(t *testing.T) {
	est := newTestEstimator(t)

	discharging := est.Estimate(24.0, 1.5)
	assert.False(t, discharging.TimeToFullValid)
	assert.True(t, discharging.TimeToEmptyValid)
	assert.Greater(t, discharging.TimeToEmptyHours, 0.0)

	charging := est.Estimate(24.0, -1.5)
	assert.True(t, charging.TimeToFullValid)
	assert.False(t, charging.TimeToEmptyValid)
	assert.Greater(t, charging.TimeToFullHours, 0.0)

	resting := est.Estimate(24.0, 0)
	assert.False(t, resting.TimeToFullValid)
	assert.False(t, resting.TimeToEmptyValid)
}

func TestDischargeScenario(t *testing.T) {
	est := newTestEstimator(t)
	st := est.Estimate(25.2, 2.5)
	assert.InDelta(t, 77.19, st.SOC, 0.01)
	assert.Equal(t, model.ModeDischarging, st.Mode)
	assert.True(t, st.TimeToEmptyValid)
	assert.InDelta(t, 30.88, st.TimeToEmptyHours, 0.01)
	assert.False(t, st.TimeToFullValid)
}

func TestChargeEfficiencyApplied(t *testing.T) {
	est := newTestEstimator(t)
	st := est.Estimate(23.65, -2.0) // soc = 50
	assert.InDelta(t, 50.0, st.SOC, 0.01)
	// (100Ah * 50%) / (2A * 0.95)
	assert.InDelta(t, 26.3158, st.TimeToFullHours, 0.001)
}

func TestEstimateSampleKeepsTimestamp(t *testing.T) {
	est := newTestEstimator(t)
	s := model.RawSample{Voltage: 24, Current: 1}
	st := est.EstimateSample(s)
	assert.False(t, st.Timestamp.IsZero())
}
