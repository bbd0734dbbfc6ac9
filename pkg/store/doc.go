// Package store provides a reducer-driven state container with pluggable
// middleware.
//
// A Store holds one state value and changes it only through Dispatch. Each
// plain Action is passed through the middleware chain to the root Reducer,
// which returns the next state; every subscribed Listener is then called,
// in subscription order, with that state.
//
//	root := store.CombineReducers(map[string]store.Reducer[any]{
//	    "auth": store.Slice(auth.Reduce),
//	    "ui":   store.Slice(ui.Reduce),
//	})
//
//	st := store.New(root, nil,
//	    store.ThunkMiddleware[*store.Tree](),
//	    store.LoggerMiddleware[*store.Tree](logger, devMode),
//	)
//
//	unsubscribe := st.Subscribe(func(t *store.Tree) {
//	    render(store.Select[*auth.State](t, "auth"))
//	})
//	defer unsubscribe()
//
//	st.Dispatch(ctx, auth.Logout())
//
// # Thunks
//
// A Thunk is a function that is also an Action. When ThunkMiddleware is
// installed, dispatching a Thunk runs it with the store's dispatch and
// getState and returns its Result; the thunk itself never reaches later
// middleware or the reducer, only the plain actions it dispatches do.
//
//	func FetchProducts(api ProductAPI) store.Thunk[*store.Tree] {
//	    return func(ctx context.Context, dispatch store.Dispatch, getState func() *store.Tree) store.Result {
//	        dispatch(ctx, FetchStart{})
//	        items, err := api.ListProducts(ctx, token(getState()))
//	        if err != nil {
//	            dispatch(ctx, FetchFailure{Error: err.Error()})
//	            return store.Failure(err)
//	        }
//	        dispatch(ctx, FetchSuccess{Items: items})
//	        return store.Success(items)
//	    }
//	}
//
// # Reentrancy
//
// Dispatch is synchronous. A listener that dispatches runs the nested
// dispatch, including its listeners, to completion before the outer
// dispatch notifies its remaining listeners, which then receive the state
// the nested dispatch produced. The lock is never held while a reducer or
// listener runs, so both may call GetState and Dispatch.
package store
