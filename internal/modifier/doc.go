// Package modifier defines the correction plugin contract the regression
// stage drives, plus a static name-keyed registry of plugin factories.
//
// A Modifier is constructed once from its settings block and shared by all
// events. For each event the stage calls ForEvent exactly once, before any
// record is touched, and then Modify on every record of the collection.
// Per-event state lives in the returned Corrector, so concurrent events
// never write to the shared Modifier.
package modifier
