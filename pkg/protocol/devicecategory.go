package protocol

// DeviceCategory groups enrolled devices by their role on the base unit.
// The single character code appears in device commands and responses.
type DeviceCategory struct {
	Code        byte
	Description string
	MaxDevices  int
}

var (
	CategoryController = DeviceCategory{Code: 'c', Description: "Controller", MaxDevices: 32}
	CategoryBurglar    = DeviceCategory{Code: 'b', Description: "Burglar", MaxDevices: 128}
	CategoryFire       = DeviceCategory{Code: 'f', Description: "Fire", MaxDevices: 64}
	CategoryMedical    = DeviceCategory{Code: 'm', Description: "Medical", MaxDevices: 32}
	CategorySpecial    = DeviceCategory{Code: 'e', Description: "Special", MaxDevices: 32}
	CategoryBaseUnit   = DeviceCategory{Code: 'z', Description: "Base Unit", MaxDevices: 0}
)

// Categories lists every category. The order matters; some responses refer
// to a category by its index in this list.
var Categories = []DeviceCategory{
	CategoryController,
	CategoryBurglar,
	CategoryFire,
	CategoryMedical,
	CategorySpecial,
	CategoryBaseUnit,
}

// CategoryByCode looks up a category by its single character code.
func CategoryByCode(code byte) (DeviceCategory, bool) {
	for _, c := range Categories {
		if c.Code == code {
			return c, true
		}
	}
	return DeviceCategory{}, false
}

// CategoryByIndex looks up a category by its position in Categories.
func CategoryByIndex(index int) (DeviceCategory, bool) {
	if index < 0 || index >= len(Categories) {
		return DeviceCategory{}, false
	}
	return Categories[index], true
}

func (c DeviceCategory) String() string {
	return c.Description
}
