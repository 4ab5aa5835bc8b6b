package taskrunner

import "fmt"

func resolveExecCommands(raw *RawConfig, reg *Registry, targets map[FQN]Target) error {
	const tag = "command.exec"
	decls := raw.Command.Exec
	extendsOf := make(map[string]string, len(decls))
	for name, d := range decls {
		extendsOf[name] = d.Extends
	}
	for name := range decls {
		chain, err := extendsChain(tag, name, extendsOf)
		if err != nil {
			return err
		}
		var info foldedInfo
		var daemon *bool
		var command, defaultArgs *string
		var env []string
		for _, n := range chain {
			d := decls[n]
			info = foldTargetInfo(info, foldedInfo{requires: d.Requires, variables: d.Variables, description: d.Description})
			daemon = foldBoolPtr(daemon, d.Daemon)
			command = foldOptionalScalarStr(command, d.Command)
			defaultArgs = foldOptionalScalar(defaultArgs, d.DefaultArgs)
			env = foldList(env, d.Env)
		}
		cmdVal := ""
		if command != nil {
			cmdVal = *command
		}
		if cmdVal == "" {
			return fmt.Errorf("%s.%s: command must not be empty", tag, name)
		}
		canonCmd, err := canonicalizeRefs(cmdVal, reg)
		if err != nil {
			return err
		}
		canonDefaultArgs, err := canonicalizeOptional(defaultArgs, reg)
		if err != nil {
			return err
		}
		canonVars, err := canonicalizeMap(info.variables, reg)
		if err != nil {
			return err
		}
		self := FQN{Tag: tag, Name: name}
		requires, err := resolveRequires(self, info.requires, reg)
		if err != nil {
			return err
		}
		targets[self] = &ExecCommand{
			TargetInfo: TargetInfo{Name: self, Requires: requires, Variables: canonVars, Description: info.description},
			CommandInfo: CommandInfo{Daemon: daemon != nil && *daemon},
			Command:     canonCmd,
			DefaultArgs: canonDefaultArgs,
			Env:         env,
		}
	}
	return nil
}

func resolveContainerCommands(raw *RawConfig, reg *Registry, targets map[FQN]Target) error {
	const tag = "command.container"
	decls := raw.Command.Container
	extendsOf := make(map[string]string, len(decls))
	for name, d := range decls {
		extendsOf[name] = d.Extends
	}
	for name := range decls {
		chain, err := extendsChain(tag, name, extendsOf)
		if err != nil {
			return err
		}
		var info foldedInfo
		var daemon, createNetwork *bool
		var image string
		var command, workdir, network, defaultArgs *string
		var env []string
		mount := map[string]string{}
		for _, n := range chain {
			d := decls[n]
			info = foldTargetInfo(info, foldedInfo{requires: d.Requires, variables: d.Variables, description: d.Description})
			daemon = foldBoolPtr(daemon, d.Daemon)
			createNetwork = foldBoolPtr(createNetwork, d.CreateNetwork)
			image = foldScalar(image, d.Image)
			command = foldOptionalScalar(command, d.Command)
			workdir = foldOptionalScalar(workdir, d.Workdir)
			network = foldOptionalScalar(network, d.Network)
			defaultArgs = foldOptionalScalar(defaultArgs, d.DefaultArgs)
			env = foldList(env, d.Env)
			mount = foldMap(mount, d.Mount)
		}
		if image == "" {
			return fmt.Errorf("%s.%s: image must not be empty", tag, name)
		}
		canonImage, err := canonicalizeRefs(image, reg)
		if err != nil {
			return err
		}
		canonCommand, err := canonicalizeOptional(command, reg)
		if err != nil {
			return err
		}
		canonWorkdir, err := canonicalizeOptional(workdir, reg)
		if err != nil {
			return err
		}
		canonNetwork, err := canonicalizeOptional(network, reg)
		if err != nil {
			return err
		}
		canonDefaultArgs, err := canonicalizeOptional(defaultArgs, reg)
		if err != nil {
			return err
		}
		canonMount, err := canonicalizeMap(mount, reg)
		if err != nil {
			return err
		}
		canonVars, err := canonicalizeMap(info.variables, reg)
		if err != nil {
			return err
		}
		self := FQN{Tag: tag, Name: name}
		requires, err := resolveRequires(self, info.requires, reg)
		if err != nil {
			return err
		}
		targets[self] = &ContainerCommand{
			TargetInfo:    TargetInfo{Name: self, Requires: requires, Variables: canonVars, Description: info.description},
			CommandInfo:   CommandInfo{Daemon: daemon != nil && *daemon},
			Image:         canonImage,
			Command:       canonCommand,
			Env:           env,
			Mount:         canonMount,
			Workdir:       canonWorkdir,
			Network:       canonNetwork,
			CreateNetwork: createNetwork != nil && *createNetwork,
			DefaultArgs:   canonDefaultArgs,
		}
	}
	return nil
}

func resolveContainerImageArtifacts(raw *RawConfig, reg *Registry, targets map[FQN]Target) error {
	const tag = "artifact.container_image"
	decls := raw.Artifact.ContainerImage
	extendsOf := make(map[string]string, len(decls))
	for name, d := range decls {
		extendsOf[name] = d.Extends
	}
	for name := range decls {
		chain, err := extendsChain(tag, name, extendsOf)
		if err != nil {
			return err
		}
		var info foldedInfo
		var context, imgTag string
		var updatesPaths, ifFilesChanged []string
		for _, n := range chain {
			d := decls[n]
			info = foldTargetInfo(info, foldedInfo{requires: d.Requires, variables: d.Variables, description: d.Description})
			context = foldScalar(context, d.Context)
			imgTag = foldScalar(imgTag, d.Tag)
			updatesPaths = foldOptionalList(updatesPaths, d.UpdatesPaths)
			ifFilesChanged = foldOptionalList(ifFilesChanged, d.IfFilesChanged)
		}
		if context == "" || imgTag == "" {
			return fmt.Errorf("%s.%s: context and tag must not be empty", tag, name)
		}
		canonContext, err := canonicalizeRefs(context, reg)
		if err != nil {
			return err
		}
		canonTag, err := canonicalizeRefs(imgTag, reg)
		if err != nil {
			return err
		}
		canonUpdatesPaths, err := canonicalizeStrings(updatesPaths, reg)
		if err != nil {
			return err
		}
		canonIfFilesChanged, err := canonicalizeStrings(ifFilesChanged, reg)
		if err != nil {
			return err
		}
		canonVars, err := canonicalizeMap(info.variables, reg)
		if err != nil {
			return err
		}
		self := FQN{Tag: tag, Name: name}
		requires, err := resolveRequires(self, info.requires, reg)
		if err != nil {
			return err
		}
		targets[self] = &ContainerImageArtifact{
			TargetInfo:   TargetInfo{Name: self, Requires: requires, Variables: canonVars, Description: info.description},
			ArtifactInfo: ArtifactInfo{UpdatesPaths: canonUpdatesPaths, IfFilesChanged: canonIfFilesChanged},
			Context:      canonContext,
			Tag:          canonTag,
		}
	}
	return nil
}

func resolveExecArtifacts(raw *RawConfig, reg *Registry, targets map[FQN]Target) error {
	const tag = "artifact.exec"
	decls := raw.Artifact.Exec
	extendsOf := make(map[string]string, len(decls))
	for name, d := range decls {
		extendsOf[name] = d.Extends
	}
	for name := range decls {
		chain, err := extendsChain(tag, name, extendsOf)
		if err != nil {
			return err
		}
		var info foldedInfo
		var command string
		var env []string
		var updatesPaths, ifFilesChanged []string
		for _, n := range chain {
			d := decls[n]
			info = foldTargetInfo(info, foldedInfo{requires: d.Requires, variables: d.Variables, description: d.Description})
			command = foldScalar(command, d.Command)
			env = foldList(env, d.Env)
			updatesPaths = foldOptionalList(updatesPaths, d.UpdatesPaths)
			ifFilesChanged = foldOptionalList(ifFilesChanged, d.IfFilesChanged)
		}
		if command == "" {
			return fmt.Errorf("%s.%s: command must not be empty", tag, name)
		}
		canonCommand, err := canonicalizeRefs(command, reg)
		if err != nil {
			return err
		}
		canonUpdatesPaths, err := canonicalizeStrings(updatesPaths, reg)
		if err != nil {
			return err
		}
		canonIfFilesChanged, err := canonicalizeStrings(ifFilesChanged, reg)
		if err != nil {
			return err
		}
		canonVars, err := canonicalizeMap(info.variables, reg)
		if err != nil {
			return err
		}
		self := FQN{Tag: tag, Name: name}
		requires, err := resolveRequires(self, info.requires, reg)
		if err != nil {
			return err
		}
		targets[self] = &ExecArtifact{
			TargetInfo:   TargetInfo{Name: self, Requires: requires, Variables: canonVars, Description: info.description},
			ArtifactInfo: ArtifactInfo{UpdatesPaths: canonUpdatesPaths, IfFilesChanged: canonIfFilesChanged},
			Command:      canonCommand,
			Env:          env,
		}
	}
	return nil
}

// foldOptionalScalarStr folds a *string base against a plain-string
// child field (RawExecCommand.Command isn't itself optional, since an
// empty string is its "unset" sentinel pre-fold).
func foldOptionalScalarStr(base *string, child string) *string {
	if child != "" {
		return &child
	}
	return base
}
