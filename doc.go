// Package qaglue wires the page glue of the Q&A application together.
//
// An App owns one parsed page and the managers that act on it: theme,
// notifications, votes, search, tag suggestions, the realtime listener,
// content enhancements and the dashboard stats refresher. Every manager is
// built in New from the loaded configuration and shares one notification
// manager. There is no package-level state.
//
//	doc, _ := dom.ParseString(page)
//	app, err := qaglue.New(doc, cfg)
//	if err != nil {
//	    return err
//	}
//	app.Enhance()
//	go app.Run(ctx)
//	app.Dispatch(ctx, dom.Click(button))
package qaglue
