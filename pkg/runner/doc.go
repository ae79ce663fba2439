/*
Package runner executes model definitions on behalf of the outer surfaces.

It is the bridge between the engine and the outside world: the CLI, the HTTP
API and the MCP server all hand a model.Definition to a Runner, which builds a
fresh engine, runs it with the configured lifecycle hooks and keeps the result
in a ports.ResultStore.

# Usage

	r := runner.New(memory.NewStore(), runner.WithLogger(logger))

	rec, err := r.Run(ctx, def, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(rec.ID, rec.Result.Variables.Totals())
*/
package runner
