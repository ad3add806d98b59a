package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"foodie-skill/internal/domain"
	"foodie-skill/internal/slots"
)

func addressIntent(zip, city, state string) *domain.Intent {
	return &domain.Intent{Name: "CaptureAddressIntent", Slots: map[string]domain.RawSlot{
		"zip":   {Name: "zip", Value: zip},
		"city":  {Name: "city", Value: city},
		"state": {Name: "state", Value: state},
	}}
}

func intentTurn(in *domain.Intent, ds domain.DialogState) domain.Turn {
	return domain.Turn{Type: domain.RequestIntent, Intent: in, DialogState: ds}
}

func TestRestore_NoRecord(t *testing.T) {
	st := Restore(nil)
	require.True(t, st.IsNew)
	require.Equal(t, domain.UserProfile{}, st.Profile)
	require.Empty(t, st.Recommendations.Current.Meals)
	require.NotNil(t, st.Recommendations.Current.Meals)
}

func TestRestore_ExistingRecordClearsCurrentMeals(t *testing.T) {
	rec := &domain.PersistedRecord{
		Profile: domain.UserProfile{Name: "Sam", Diet: "vegan"},
		Recommendations: domain.RecommendationState{
			Previous: domain.PreviousPick{Meal: "Daegu Jorim"},
			Current:  domain.CurrentPicks{Meals: []string{"stale"}},
		},
	}
	st := Restore(rec)
	require.False(t, st.IsNew)
	require.Equal(t, "Sam", st.Profile.Name)
	require.Equal(t, "Daegu Jorim", st.Recommendations.Previous.Meal)
	require.Empty(t, st.Recommendations.Current.Meals)
	require.Equal(t, []string{"stale"}, rec.Recommendations.Current.Meals, "input must not be mutated")
}

func TestCaptureSlots_BootstrapWritesProfile(t *testing.T) {
	st := Restore(nil)
	turn := intentTurn(addressIntent("", "Seattle", "WA"), domain.DialogInProgress)

	out := CaptureSlots(st, turn, "CaptureAddressIntent", []string{"zip", "city", "state"}, AddressField)
	require.Equal(t, domain.Address{City: "Seattle", State: "WA"}, out.Profile.Location.Address)
	snap, ok := out.Snapshot("CaptureAddressIntent")
	require.True(t, ok)
	require.Equal(t, "Seattle", snap.SlotValue("city"))
	require.Empty(t, st.Profile.Location.Address.City, "input state must not be mutated")
}

func TestCaptureSlots_OnlyChangedSlots(t *testing.T) {
	st := Restore(nil)
	st = CaptureSlots(st, intentTurn(addressIntent("", "Seattle", ""), domain.DialogInProgress), "CaptureAddressIntent", []string{"zip", "city", "state"}, AddressField)

	var placed []string
	spy := func(p domain.UserProfile, name string, s slots.Normalized) domain.UserProfile {
		placed = append(placed, name)
		return AddressField(p, name, s)
	}
	st = CaptureSlots(st, intentTurn(addressIntent("", "Seattle", "WA"), domain.DialogInProgress), "CaptureAddressIntent", []string{"zip", "city", "state"}, spy)
	require.Equal(t, []string{"state"}, placed)
	require.Equal(t, "WA", st.Profile.Location.Address.State)
}

func TestCaptureSlots_EmptiedSlotKeepsProfile(t *testing.T) {
	st := Restore(nil)
	st = CaptureSlots(st, intentTurn(addressIntent("", "Seattle", ""), domain.DialogInProgress), "CaptureAddressIntent", []string{"zip", "city", "state"}, AddressField)

	var placed []string
	spy := func(p domain.UserProfile, name string, s slots.Normalized) domain.UserProfile {
		placed = append(placed, name)
		return AddressField(p, name, s)
	}
	st = CaptureSlots(st, intentTurn(addressIntent("", "", "WA"), domain.DialogInProgress), "CaptureAddressIntent", []string{"zip", "city", "state"}, spy)
	require.Equal(t, []string{"state"}, placed)
	require.Equal(t, domain.Address{City: "Seattle", State: "WA"}, st.Profile.Location.Address)
}

func TestCaptureSlots_OtherIntentIgnored(t *testing.T) {
	st := Restore(nil)
	out := CaptureSlots(st, intentTurn(addressIntent("98101", "", ""), domain.DialogInProgress), "RecommendationIntent", []string{"diet"}, ProfileField)
	require.Equal(t, st, out)
}

func TestCaptureSlots_CompletedTurnKeepsNoSnapshot(t *testing.T) {
	st := Restore(nil)
	out := CaptureSlots(st, intentTurn(addressIntent("98101", "", ""), domain.DialogCompleted), "CaptureAddressIntent", []string{"zip"}, AddressField)
	require.Equal(t, "98101", out.Profile.Location.Address.Zip)
	_, ok := out.Snapshot("CaptureAddressIntent")
	require.False(t, ok)
}

func TestReconcile_SnapshotFillsEmptySlot(t *testing.T) {
	st := Restore(nil)
	st, _ = Reconcile(st, intentTurn(addressIntent("", "Seattle", ""), domain.DialogInProgress))

	st, merged := Reconcile(st, intentTurn(addressIntent("", "", "WA"), domain.DialogInProgress))
	require.Equal(t, "Seattle", merged.SlotValue("city"))
	require.Equal(t, "WA", merged.SlotValue("state"))

	snap, ok := st.Snapshot("CaptureAddressIntent")
	require.True(t, ok)
	require.Equal(t, merged, snap)
}

func TestReconcile_CurrentValueWins(t *testing.T) {
	st := Restore(nil)
	st, _ = Reconcile(st, intentTurn(addressIntent("", "Seattle", ""), domain.DialogInProgress))

	_, merged := Reconcile(st, intentTurn(addressIntent("", "Portland", ""), domain.DialogInProgress))
	require.Equal(t, "Portland", merged.SlotValue("city"))
}

func TestReconcile_SurvivesInterruption(t *testing.T) {
	st := Restore(nil)
	st, _ = Reconcile(st, intentTurn(addressIntent("", "Seattle", ""), domain.DialogInProgress))

	help := &domain.Intent{Name: "AMAZON.HelpIntent"}
	st, _ = Reconcile(st, intentTurn(help, domain.DialogNone))

	_, merged := Reconcile(st, intentTurn(addressIntent("", "", "WA"), domain.DialogInProgress))
	require.Equal(t, "Seattle", merged.SlotValue("city"))
}

func TestReconcile_CompletedLeavesStateAlone(t *testing.T) {
	st := Restore(nil)
	turn := intentTurn(addressIntent("98101", "", ""), domain.DialogCompleted)
	out, in := Reconcile(st, turn)
	require.Equal(t, st, out)
	require.Equal(t, "98101", in.SlotValue("zip"))
}

func TestReconcile_NonIntentTurn(t *testing.T) {
	st := Restore(nil)
	out, in := Reconcile(st, domain.Turn{Type: domain.RequestLaunch})
	require.Equal(t, st, out)
	require.Empty(t, in.Name)
}

func TestCompleteIntent(t *testing.T) {
	st := Restore(nil)
	st, _ = Reconcile(st, intentTurn(addressIntent("", "Seattle", ""), domain.DialogInProgress))

	out := CompleteIntent(st, "CaptureAddressIntent")
	_, ok := out.Snapshot("CaptureAddressIntent")
	require.False(t, ok)
	_, ok = st.Snapshot("CaptureAddressIntent")
	require.True(t, ok, "input state must not be mutated")
}

func TestFinalize_ClearsCurrentMeals(t *testing.T) {
	st := Restore(nil)
	st.Recommendations.Current.Meals = []string{"Domi Maeuntang", "Mae Un Tang"}
	st.Recommendations.Previous.Meal = "Mae Un Tang"
	st.Profile.Diet = "pescatarian"

	rec := Finalize(st)
	require.Empty(t, rec.Recommendations.Current.Meals)
	require.Equal(t, "Mae Un Tang", rec.Recommendations.Previous.Meal)
	require.Equal(t, "pescatarian", rec.Profile.Diet)
	require.Len(t, st.Recommendations.Current.Meals, 2, "input state must not be mutated")
}

func TestWillEnd(t *testing.T) {
	open := false
	closed := true
	cases := []struct {
		name string
		turn domain.Turn
		resp domain.Response
		want bool
	}{
		{name: "session ended request", turn: domain.Turn{Type: domain.RequestSessionEnded}, resp: domain.Response{ShouldEndSession: &open}, want: true},
		{name: "unset flag no directives", turn: domain.Turn{Type: domain.RequestIntent}, want: true},
		{name: "explicit end", turn: domain.Turn{Type: domain.RequestIntent}, resp: domain.Response{ShouldEndSession: &closed}, want: true},
		{name: "reprompt keeps open", turn: domain.Turn{Type: domain.RequestIntent}, resp: domain.Response{}.Ask("a", "b"), want: false},
		{name: "delegate keeps open", turn: domain.Turn{Type: domain.RequestIntent}, resp: domain.Response{}.Delegate(nil), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, WillEnd(tc.turn, tc.resp))
		})
	}
}

func TestSeed(t *testing.T) {
	in := domain.Intent{Name: "RecommendationIntent", Slots: map[string]domain.RawSlot{
		"diet":      {Name: "diet", Value: "keto"},
		"allergies": {Name: "allergies"},
	}}
	out := Seed(in, map[string]string{"diet": "vegan", "allergies": "nuts", "name": "", "timeOfDay": "lunch"})

	require.Equal(t, "keto", out.SlotValue("diet"), "user value wins over default")
	require.Equal(t, "nuts", out.SlotValue("allergies"))
	require.Equal(t, "lunch", out.SlotValue("timeOfDay"))
	require.Equal(t, "timeOfDay", out.Slots["timeOfDay"].Name)
	_, ok := out.Slots["name"]
	require.False(t, ok)
	require.Empty(t, in.SlotValue("allergies"), "input intent must not be mutated")
}
