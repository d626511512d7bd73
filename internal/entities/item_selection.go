package entities

// ItemSelection is what an owner picks when filing an entry request. It is one
// of EquipmentSelection, WorkerSelection or PairedSelection.
type ItemSelection interface {
	EquipmentIDs() []int64
	WorkerIDs() []int64
	Items() []EntryRequestItem
	isItemSelection()
}

type EquipmentSelection struct {
	EquipmentID int64
}

type WorkerSelection struct {
	WorkerID int64
}

type PairedSelection struct {
	EquipmentID int64
	WorkerID    int64
}

func (EquipmentSelection) isItemSelection() {}
func (WorkerSelection) isItemSelection()    {}
func (PairedSelection) isItemSelection()    {}

func (s EquipmentSelection) EquipmentIDs() []int64 { return []int64{s.EquipmentID} }
func (s EquipmentSelection) WorkerIDs() []int64    { return nil }

func (s EquipmentSelection) Items() []EntryRequestItem {
	eq := s.EquipmentID
	return []EntryRequestItem{{
		ItemType:          ItemTypeEquipment,
		ItemID:            eq,
		PairedEquipmentID: &eq,
	}}
}

func (s WorkerSelection) EquipmentIDs() []int64 { return nil }
func (s WorkerSelection) WorkerIDs() []int64    { return []int64{s.WorkerID} }

func (s WorkerSelection) Items() []EntryRequestItem {
	w := s.WorkerID
	return []EntryRequestItem{{
		ItemType:       ItemTypeWorker,
		ItemID:         w,
		PairedWorkerID: &w,
	}}
}

func (s PairedSelection) EquipmentIDs() []int64 { return []int64{s.EquipmentID} }
func (s PairedSelection) WorkerIDs() []int64    { return []int64{s.WorkerID} }

// Items yields one equipment item and one worker item that reference each
// other.
func (s PairedSelection) Items() []EntryRequestItem {
	eq, w := s.EquipmentID, s.WorkerID
	eqForWorker, wForEquipment := eq, w
	return []EntryRequestItem{
		{
			ItemType:          ItemTypeEquipment,
			ItemID:            eq,
			PairedEquipmentID: &eq,
			PairedWorkerID:    &wForEquipment,
		},
		{
			ItemType:          ItemTypeWorker,
			ItemID:            w,
			PairedEquipmentID: &eqForWorker,
			PairedWorkerID:    &w,
		},
	}
}
