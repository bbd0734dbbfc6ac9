// Package toast provides transient feedback notifications.
//
// A Notification is created with a generated id, displayed by the portal's
// notification container and removed either when the user dismisses it or
// when its duration elapses. Code that wants to show a toast only needs a
// Notifier; the portal supplies one that dispatches into the session store.
//
//	func deleteProduct(ctx context.Context, n toast.Notifier) {
//	    if err := api.DeleteProduct(ctx, id); err != nil {
//	        toast.Error(ctx, n, "Failed to delete product")
//	        return
//	    }
//	    toast.Success(ctx, n, "Product deleted")
//	}
//
// The container renders each notification as a list item carrying a
// data-toast attribute with its id; dismiss events from the browser name
// that id.
package toast
