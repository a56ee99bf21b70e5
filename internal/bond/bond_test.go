package bond

import (
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/godbus/dbus/v5"
)

// fakeObject answers D-Bus calls from a canned object tree.
type fakeObject struct {
	mu        sync.Mutex
	objects   map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	listErr   error
	removeErr map[dbus.ObjectPath]error
	removed   []dbus.ObjectPath
}

func (f *fakeObject) Call(method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch method {
	case dbusObjectManager + ".GetManagedObjects":
		if f.listErr != nil {
			return &dbus.Call{Err: f.listErr}
		}
		return &dbus.Call{Body: []interface{}{f.objects}}
	case bluezAdapter1 + ".RemoveDevice":
		path := args[0].(dbus.ObjectPath)
		if err := f.removeErr[path]; err != nil {
			return &dbus.Call{Err: err}
		}
		f.removed = append(f.removed, path)
		return &dbus.Call{}
	}
	return &dbus.Call{Err: errors.New("fake: unexpected method " + method)}
}

func device(props map[string]interface{}) map[string]map[string]dbus.Variant {
	vs := make(map[string]dbus.Variant, len(props))
	for k, v := range props {
		vs[k] = dbus.MakeVariant(v)
	}
	return map[string]map[string]dbus.Variant{bluezDevice1: vs}
}

func newFakeBlueZ(obj *fakeObject) *BlueZ {
	return &BlueZ{adapter: "hci0", root: obj, adapt: obj}
}

func testObjects() map[dbus.ObjectPath]map[string]map[string]dbus.Variant {
	return map[dbus.ObjectPath]map[string]map[string]dbus.Variant{
		"/org/bluez/hci0": {bluezAdapter1: {}},
		"/org/bluez/hci0/dev_AA_AA_AA_AA_AA_AA": device(map[string]interface{}{"Paired": true}),
		"/org/bluez/hci0/dev_BB_BB_BB_BB_BB_BB": device(map[string]interface{}{"Paired": false, "Bonded": true}),
		"/org/bluez/hci0/dev_CC_CC_CC_CC_CC_CC": device(map[string]interface{}{"Paired": false}),
		"/org/bluez/hci1/dev_DD_DD_DD_DD_DD_DD": device(map[string]interface{}{"Paired": true}),
	}
}

func TestForgetAllRemovesBondedDevicesOnly(t *testing.T) {
	obj := &fakeObject{objects: testObjects()}

	if err := newFakeBlueZ(obj).ForgetAll(); err != nil {
		t.Fatalf("ForgetAll() error = %v", err)
	}

	got := make([]string, len(obj.removed))
	for i, p := range obj.removed {
		got[i] = string(p)
	}
	sort.Strings(got)
	want := []string{
		"/org/bluez/hci0/dev_AA_AA_AA_AA_AA_AA",
		"/org/bluez/hci0/dev_BB_BB_BB_BB_BB_BB",
	}
	if len(got) != len(want) {
		t.Fatalf("removed = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("removed[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestForgetAllNoDevices(t *testing.T) {
	obj := &fakeObject{objects: map[dbus.ObjectPath]map[string]map[string]dbus.Variant{}}
	if err := newFakeBlueZ(obj).ForgetAll(); err != nil {
		t.Fatalf("ForgetAll() error = %v", err)
	}
	if len(obj.removed) != 0 {
		t.Errorf("removed = %v, want none", obj.removed)
	}
}

func TestForgetAllListError(t *testing.T) {
	errBus := errors.New("bus down")
	obj := &fakeObject{listErr: errBus}
	if err := newFakeBlueZ(obj).ForgetAll(); !errors.Is(err, errBus) {
		t.Errorf("ForgetAll() error = %v, want wrapped %v", err, errBus)
	}
}

func TestForgetAllContinuesPastRemoveError(t *testing.T) {
	errRemove := errors.New("not ready")
	obj := &fakeObject{
		objects: testObjects(),
		removeErr: map[dbus.ObjectPath]error{
			"/org/bluez/hci0/dev_AA_AA_AA_AA_AA_AA": errRemove,
		},
	}

	err := newFakeBlueZ(obj).ForgetAll()
	if !errors.Is(err, errRemove) {
		t.Errorf("ForgetAll() error = %v, want wrapped %v", err, errRemove)
	}
	if len(obj.removed) != 1 || obj.removed[0] != "/org/bluez/hci0/dev_BB_BB_BB_BB_BB_BB" {
		t.Errorf("removed = %v, want the BB device", obj.removed)
	}
}

func TestDiscard(t *testing.T) {
	if err := (Discard{}).ForgetAll(); err != nil {
		t.Errorf("Discard.ForgetAll() error = %v", err)
	}
}
