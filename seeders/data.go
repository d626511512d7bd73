package seeders

import "site-entry/internal/entities"

var equipmentTypesData = []string{
	"Tower crane",
	"Excavator",
	"Concrete pump",
	"Aerial work platform",
}

var workerTypesData = []string{
	"Crane operator",
	"Excavator operator",
	"Signal person",
}

// requiredDocumentsData is keyed by type name; ids are resolved at seed time.
var requiredDocumentsData = []struct {
	TargetType entities.TargetType
	TypeName   string
	DocName    string
}{
	{entities.TargetEquipment, "Tower crane", "insurance_certificate"},
	{entities.TargetEquipment, "Tower crane", "safety_inspection"},
	{entities.TargetEquipment, "Excavator", "insurance_certificate"},
	{entities.TargetEquipment, "Concrete pump", "insurance_certificate"},
	{entities.TargetEquipment, "Aerial work platform", "safety_inspection"},
	{entities.TargetWorker, "Crane operator", "operator_license"},
	{entities.TargetWorker, "Crane operator", "safety_training"},
	{entities.TargetWorker, "Excavator operator", "operator_license"},
	{entities.TargetWorker, "Signal person", "safety_training"},
}

type demoCompany struct {
	ID   int64
	Name string
	Kind entities.Role
}

var demoCompaniesData = []demoCompany{
	{ID: 1, Name: "Hanbit Heavy Equipment", Kind: entities.RoleOwner},
	{ID: 2, Name: "Daehan Construction", Kind: entities.RoleBP},
	{ID: 3, Name: "Seoul Tower Developments", Kind: entities.RoleEP},
}

type demoUser struct {
	ID        int64
	CompanyID int64 // 0 for platform admins
	Role      entities.Role
	Name      string
}

var demoUsersData = []demoUser{
	{ID: 1, Role: entities.RoleAdmin, Name: "Platform Admin"},
	{ID: 2, CompanyID: 1, Role: entities.RoleOwner, Name: "Kim Owner"},
	{ID: 3, CompanyID: 2, Role: entities.RoleBP, Name: "Lee Site Manager"},
	{ID: 4, CompanyID: 3, Role: entities.RoleEP, Name: "Park Developer"},
	{ID: 5, CompanyID: 1, Role: entities.RoleOwner, Name: "Choi Operator"},
}

var demoEquipmentData = []struct {
	ID       int64
	TypeName string
	Name     string
}{
	{ID: 1, TypeName: "Tower crane", Name: "TC-01 Liebherr 280"},
	{ID: 2, TypeName: "Excavator", Name: "EX-07 Doosan DX225"},
	{ID: 3, TypeName: "Concrete pump", Name: "CP-02 Everdigm 47m"},
}

var demoWorkersData = []struct {
	ID       int64
	TypeName string
	Name     string
	UserID   int64 // 0 when the worker has no login
}{
	{ID: 1, TypeName: "Crane operator", Name: "Choi Operator", UserID: 5},
	{ID: 2, TypeName: "Excavator operator", Name: "Jung Digger"},
	{ID: 3, TypeName: "Signal person", Name: "Yoon Signal"},
}

// demoDocumentsValidFor is how long seeded documents stay valid from seed time.
const demoDocumentsValidFor = 365
