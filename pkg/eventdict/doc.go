/*
Package eventdict provides typed in-process publish/subscribe built around
event dictionaries.

An event dictionary is a nested tree of named events. It is declared once,
built into descriptors with unique ids, optionally combined with other
dictionaries, and then used as keys into an Emitter.

# Declaring and building

	type TaskAdded struct{ Title string }

	var todo = eventdict.Build(eventdict.Dict{
	    "tasks": eventdict.Dict{
	        "added":   eventdict.Define[TaskAdded](),
	        "removed": eventdict.Define[string](),
	    },
	})

	var taskAdded = eventdict.MustEventAt[TaskAdded](todo, "tasks", "added")

Build gives every marker a fresh id and a dot-joined path ("tasks.added").
Building the same declarations twice yields distinct ids: events have nominal
identity, never structural.

# Combining

Combine nests built dictionaries under new keys. Paths are rewritten
("todoApp.tasks.added") but ids are kept, so listeners registered through
the original dictionary still fire:

	all := eventdict.Combine(eventdict.Dict{
	    "todoApp":        todo,
	    "calendarModule": calendar,
	}, "")

# Emitting

	em := eventdict.NewEmitter(eventdict.WithLogger(logger))

	onAdded := eventdict.Callback(func(t TaskAdded) { fmt.Println(t.Title) })
	_ = eventdict.On(em, taskAdded, onAdded)

	err := eventdict.Emit(ctx, em, taskAdded, TaskAdded{Title: "write docs"})

Delivery is synchronous and ordered by subscription. The first listener
error stops delivery and is returned as *ListenerError. Listeners are
tracked by identity, so keep the value returned by Func or Callback to
unsubscribe later.

Bind and BindTree pair descriptors with an emitter so callers do not have to
pass both around.
*/
package eventdict
