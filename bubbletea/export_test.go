package bubbletea

// ExpandTabsColumn exposes the column-tracking tab expansion used when
// rendering consecutive styled segments.
var ExpandTabsColumn = expandTabs
