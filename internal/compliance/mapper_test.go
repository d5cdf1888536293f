package compliance

import (
	"reflect"
	"testing"
)

func TestMap_AllControls(t *testing.T) {
	controls := []string{
		ControlFirewall,
		ControlInputSanitization,
		ControlRBACAdaptive,
		ControlOutputSanitization,
	}
	ev := Map(controls)

	if !reflect.DeepEqual(ev.ControlsApplied, controls) {
		t.Errorf("controls applied not preserved: %v", ev.ControlsApplied)
	}
	if len(ev.Mapping) != 4 {
		t.Errorf("expected 4 mapped controls, got %d", len(ev.Mapping))
	}
	want := []string{"enisa", "eu_ai_act", "iso", "owasp"}
	if !reflect.DeepEqual(ev.StandardsCovered, want) {
		t.Errorf("expected standards %v, got %v", want, ev.StandardsCovered)
	}
	if ev.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestMap_PartialControls(t *testing.T) {
	ev := Map([]string{ControlFirewall})

	if len(ev.Mapping) != 1 {
		t.Fatalf("expected 1 mapped control, got %d", len(ev.Mapping))
	}
	owasp := ev.Mapping[ControlFirewall]["owasp"]
	if !reflect.DeepEqual(owasp, []string{"LLM03", "LLM04"}) {
		t.Errorf("unexpected owasp citations %v", owasp)
	}
}

func TestMap_UnknownControl(t *testing.T) {
	ev := Map([]string{"made_up_control", ControlRBACAdaptive})

	if _, ok := ev.Mapping["made_up_control"]; ok {
		t.Error("unknown control must not produce citations")
	}
	if len(ev.ControlsApplied) != 2 {
		t.Errorf("controls applied should keep unknown names, got %v", ev.ControlsApplied)
	}
}

func TestMap_Empty(t *testing.T) {
	ev := Map(nil)
	if len(ev.Mapping) != 0 || len(ev.StandardsCovered) != 0 {
		t.Errorf("expected empty evidence, got %+v", ev)
	}
}

func TestMap_Deterministic(t *testing.T) {
	a := Map([]string{ControlFirewall, ControlRBACAdaptive})
	b := Map([]string{ControlFirewall, ControlRBACAdaptive})
	if !reflect.DeepEqual(a.StandardsCovered, b.StandardsCovered) {
		t.Errorf("standards ordering unstable: %v vs %v", a.StandardsCovered, b.StandardsCovered)
	}
}
