package admin

import "github.com/faciam-dev/gadmin/pkg/viewmodel"

// MaskMarker replaces every substring matched by a list mask.
const MaskMarker = "****"

// applyMasks redacts list values of masked fields. It runs after foreign key
// resolution so resolved labels are masked too.
func applyMasks(vm *viewmodel.ViewModel, models []*viewmodel.Model) {
	for _, f := range vm.Fields {
		re := f.Mask()
		if re == nil {
			continue
		}
		for _, m := range models {
			if v, ok := m.FKValues[f.Name]; ok {
				m.FKValues[f.Name] = re.ReplaceAllString(v, MaskMarker)
			}
			if v, ok := m.Values[f.Name]; ok {
				m.Values[f.Name] = re.ReplaceAllString(v, MaskMarker)
			}
		}
	}
}
